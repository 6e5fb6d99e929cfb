// Package seed loads seed packs: the named list of statements a sandbox
// session is reset with.
package seed

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sqlsandbox/sandboxdb/pkg/sql"
)

//go:embed default.yaml
var defaultPack []byte

// ErrEmptyPack is returned when a pack has neither statements nor a script.
var ErrEmptyPack = errors.New("seed pack has no statements")

// Pack is a seed pack. Setup statements run first, in order, followed by the
// statements of Script.
type Pack struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Setup       []string `json:"statements,omitempty" yaml:"statements,omitempty"`
	Script      string   `json:"script,omitempty" yaml:"script,omitempty"`
}

// Default returns the built-in users/orders pack.
func Default() *Pack {
	p, err := Parse(defaultPack)
	if err != nil {
		panic(fmt.Sprintf("built-in seed pack: %v", err))
	}
	return p
}

// DefaultYAML returns the built-in pack in its YAML form.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultPack))
	copy(out, defaultPack)
	return out
}

// Load reads a pack from a file. Supports YAML and JSON; a .sql file is
// taken as a bare script.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	name := filepath.Base(path)
	switch filepath.Ext(path) {
	case ".sql":
		p := &Pack{Name: name, Script: string(data)}
		return p, p.Validate()
	case ".json":
		p := &Pack{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("failed to parse JSON seed: %w", err)
		}
		if p.Name == "" {
			p.Name = name
		}
		return p, p.Validate()
	default:
		p, err := Parse(data)
		if err != nil {
			return nil, err
		}
		if p.Name == "" {
			p.Name = name
		}
		return p, nil
	}
}

// Parse decodes a YAML pack.
func Parse(data []byte) (*Pack, error) {
	p := &Pack{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML seed: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the pack has something to run and that its script
// can be split into statements.
func (p *Pack) Validate() error {
	stmts, err := p.Statements()
	if err != nil {
		return err
	}
	if len(stmts) == 0 {
		return ErrEmptyPack
	}
	return nil
}

// Statements returns every statement of the pack in execution order.
func (p *Pack) Statements() ([]string, error) {
	out := make([]string, 0, len(p.Setup))
	for _, s := range p.Setup {
		if s != "" {
			out = append(out, s)
		}
	}
	if p.Script != "" {
		parts, err := sql.SplitStatements(p.Script)
		if err != nil {
			return nil, fmt.Errorf("seed script: %w", err)
		}
		out = append(out, parts...)
	}
	return out, nil
}

// Marshal encodes the pack as YAML.
func (p *Pack) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Apply resets the session with the pack.
func (p *Pack) Apply(s *sql.Session) error {
	stmts, err := p.Statements()
	if err != nil {
		return err
	}
	if err := s.Reset(stmts); err != nil {
		return fmt.Errorf("seed %s: %w", p.Name, err)
	}
	return nil
}
