package roles

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// MaxRosterSize bounds the roster file read into memory
const MaxRosterSize = 1 << 20

var (
	// ErrNotFound is returned when a NIK is not on the roster
	ErrNotFound = errors.New("NIK tidak terdaftar")
	// ErrRoleMismatch is returned when the NIK belongs to a different role
	ErrRoleMismatch = errors.New("role mismatch")
)

// Employee is one roster row
type Employee struct {
	NIK  string `yaml:"nik"`
	Name string `yaml:"name"`
	Role Role   `yaml:"role"`
}

// Roster maps NIKs to approvers
type Roster struct {
	byNIK map[string]Employee
}

type rosterFile struct {
	Employees []Employee `yaml:"employees"`
}

// NewRoster builds a roster from employees; duplicate NIKs are rejected
func NewRoster(employees []Employee) (*Roster, error) {
	r := &Roster{byNIK: make(map[string]Employee, len(employees))}
	for i, e := range employees {
		nik := strings.TrimSpace(e.NIK)
		if nik == "" {
			return nil, fmt.Errorf("employee %d: empty nik", i)
		}
		if !e.Role.Valid() {
			return nil, fmt.Errorf("employee %s: invalid role", nik)
		}
		if _, dup := r.byNIK[nik]; dup {
			return nil, fmt.Errorf("employee %s: duplicate nik", nik)
		}
		e.NIK = nik
		r.byNIK[nik] = e
	}
	return r, nil
}

// ParseRoster decodes a YAML roster, rejecting unknown fields
func ParseRoster(data []byte) (*Roster, error) {
	if len(data) > MaxRosterSize {
		return nil, fmt.Errorf("roster exceeds %d bytes", MaxRosterSize)
	}
	var f rosterFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return NewRoster(f.Employees)
}

// LoadRoster reads a YAML roster file
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

// Len returns the number of employees
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byNIK)
}

// Lookup returns the identity registered under nik
func (r *Roster) Lookup(nik string) (Identity, error) {
	if r == nil {
		return Identity{}, ErrNotFound
	}
	e, ok := r.byNIK[strings.TrimSpace(nik)]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return Identity{DisplayName: e.Name, Role: e.Role}, nil
}

// Authenticate resolves the signer for the selected role. Roles that do not
// require a NIK sign under their title; the others must be on the roster
// with the same role.
func (r *Roster) Authenticate(nik string, selected Role) (Identity, error) {
	if !selected.Valid() {
		return Identity{}, fmt.Errorf("invalid role %d", int(selected))
	}
	if !selected.RequiresNIK() {
		return Identity{DisplayName: selected.String(), Role: selected}, nil
	}

	id, err := r.Lookup(nik)
	if err != nil {
		return Identity{}, err
	}
	if id.Role != selected {
		return Identity{}, fmt.Errorf("%w: NIK ini terdaftar sebagai %s, bukan %s", ErrRoleMismatch, id.Role, selected)
	}
	return id, nil
}
