// Package roles holds the closed set of approver roles that may sign a
// Berita Acara, and the roster used to authenticate them.
package roles

import (
	"fmt"
	"strings"

	"github.com/markusprap/mcp-berita-acara/internal/geometry"
)

// Role is one of the five approver titles
type Role int

const (
	AreaSupervisor Role = iota + 1
	AreaManager
	DBM
	EDPManager
	OfficeManager
)

// Signature box size on the BA template, in points
const (
	DefaultSignatureWidth  = 100.0
	DefaultSignatureHeight = 45.0
)

// Info describes everything that varies by role
type Info struct {
	Title             string
	Abbreviation      string
	RequiresNameLabel bool
	RequiresNIK       bool
	// DefaultPlacement is the signature box on page 1, bottom-left origin
	DefaultPlacement geometry.PDFRect
}

func box(x, y float64) geometry.PDFRect {
	return geometry.PDFRect{X: x, Y: y, Width: DefaultSignatureWidth, Height: DefaultSignatureHeight}
}

var table = map[Role]Info{
	AreaSupervisor: {"Area Supervisor", "AS", true, true, box(249, 321)},
	AreaManager:    {"Area Manager", "AM", true, true, box(431, 321)},
	DBM:            {"DBM ADM / BM", "DBM", false, false, box(68, 171)},
	EDPManager:     {"EDP Manager", "EDP", false, false, box(249, 173)},
	OfficeManager:  {"Office Manager", "OM", false, false, box(429, 173)},
}

// All returns the roles in the order they appear on the template
func All() []Role {
	return []Role{AreaSupervisor, AreaManager, DBM, EDPManager, OfficeManager}
}

// Info returns the table entry for r; unknown roles yield the zero Info
func (r Role) Info() Info {
	return table[r]
}

// Valid reports whether r is one of the five roles
func (r Role) Valid() bool {
	_, ok := table[r]
	return ok
}

func (r Role) String() string {
	if info, ok := table[r]; ok {
		return info.Title
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Abbreviation returns the filename token, e.g. "AS"
func (r Role) Abbreviation() string {
	return table[r].Abbreviation
}

// RequiresNameLabel reports whether a printed name accompanies the signature
func (r Role) RequiresNameLabel() bool {
	return table[r].RequiresNameLabel
}

// RequiresNIK reports whether the role authenticates against the roster
func (r Role) RequiresNIK() bool {
	return table[r].RequiresNIK
}

// MarshalText encodes the role as its title
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts a title or an abbreviation
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

var aliases = map[string]Role{
	"dbm adm / dbm opr": DBM,
	"dbm adm/bm":        DBM,
}

// Parse resolves a role title or abbreviation, case-insensitively
func Parse(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return 0, fmt.Errorf("empty role")
	}
	for r, info := range table {
		if key == strings.ToLower(info.Title) || key == strings.ToLower(info.Abbreviation) {
			return r, nil
		}
	}
	if r, ok := aliases[key]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Identity is the signer for one session
type Identity struct {
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// NameLabel returns the text printed under the signature, or "" when the
// role does not carry one
func (id Identity) NameLabel() string {
	if !id.Role.RequiresNameLabel() || id.DisplayName == "" {
		return ""
	}
	return "(" + id.DisplayName + ")"
}
