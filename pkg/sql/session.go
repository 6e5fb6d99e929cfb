package sql

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sqlsandbox/sandboxdb/internal/logger"
	"github.com/sqlsandbox/sandboxdb/pkg/catalog"
	"github.com/sqlsandbox/sandboxdb/pkg/storage"
)

// Session owns one catalog and its row store and runs statements against
// them one at a time. All methods are safe to call from several goroutines;
// calls are serialized by a single lock held for the whole call.
type Session struct {
	mu    sync.Mutex
	id    string
	log   *logger.Logger
	store *storage.Store // nil until the first successful Reset
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for statement and reset events.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSession creates an uninitialized session. Call Reset before Execute.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:  uuid.NewString(),
		log: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("session").With("session_id", s.id)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Reset rebuilds the database from nothing by running every seed statement
// in order. The new state replaces the old one only if all of them succeed;
// otherwise the previous state is kept and the first error is returned.
func (s *Session) Reset(seed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	fresh := storage.NewStore(catalog.NewCatalog())
	for i, text := range seed {
		if _, err := run(fresh, text); err != nil {
			s.log.Warn("seed rejected", "statement", i+1, "kind", KindOf(err).String(), "error", err)
			return fmt.Errorf("seed statement %d: %w", i+1, err)
		}
	}
	s.store = fresh
	s.log.Info("session reset",
		"statements", len(seed),
		"tables", len(fresh.Catalog().ListTables()),
		"duration", time.Since(start))
	return nil
}

// Execute runs exactly one SQL statement.
func (s *Session) Execute(text string) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(text)
}

func (s *Session) execute(text string) (*Outcome, error) {
	if s.store == nil {
		return nil, ErrNotInitialized
	}
	start := time.Now()
	out, err := run(s.store, text)
	if err != nil {
		s.log.Debug("statement failed", "kind", KindOf(err).String(), "error", err, "duration", time.Since(start))
		return nil, err
	}
	s.log.Debug("statement executed",
		"outcome", out.Kind.String(),
		"rows", len(out.Rows),
		"mutated", out.Count,
		"duration", time.Since(start))
	return out, nil
}

func run(store *storage.Store, text string) (*Outcome, error) {
	stmt, err := Parse(text)
	if err != nil {
		return nil, err
	}
	plan, err := Bind(stmt, store.Catalog())
	if err != nil {
		return nil, err
	}
	return NewExecutor(store).Execute(plan)
}

// ScriptResult is the result of one statement of a script.
type ScriptResult struct {
	Statement string
	Outcome   *Outcome
	Err       error
}

// ExecuteScript splits a script on semicolons and runs each statement on its
// own. A failing statement does not undo earlier ones or stop later ones.
func (s *Session) ExecuteScript(script string) []ScriptResult {
	statements, err := SplitStatements(script)
	if err != nil {
		return []ScriptResult{{Statement: script, Err: err}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]ScriptResult, 0, len(statements))
	for _, text := range statements {
		out, err := s.execute(text)
		results = append(results, ScriptResult{Statement: text, Outcome: out, Err: err})
	}
	return results
}

// Tables lists the table names in creation order.
func (s *Session) Tables() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil, ErrNotInitialized
	}
	return s.store.Catalog().ListTables(), nil
}

// Describe returns a copy of the definition of a table.
func (s *Session) Describe(table string) (*catalog.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil, ErrNotInitialized
	}
	t, err := s.store.Catalog().GetTable(table)
	if err != nil {
		return nil, storageError(err)
	}
	return t.Clone(), nil
}

// RowCount returns the number of rows in a table.
func (s *Session) RowCount(table string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return 0, ErrNotInitialized
	}
	n, err := s.store.Count(table)
	if err != nil {
		return 0, storageError(err)
	}
	return n, nil
}
