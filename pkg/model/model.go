package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/value"
)

// TargetType is the value of a target's "type" key
type TargetType string

const (
	TypeExecutable    TargetType = "executable"
	TypeStaticLibrary TargetType = "static_library"
	TypeSharedLibrary TargetType = "shared_library"
	TypeNone          TargetType = "none"
)

// Well-known keys of a unit and of a target record
const (
	KeyTargets           = "targets"
	KeyIncludes          = "includes"
	KeyConditions        = "conditions"
	KeySettings          = "settings"
	KeyName              = "name"
	KeyType              = "type"
	KeyDependencies      = "dependencies"
	KeySources           = "sources"
	KeyLibraries         = "libraries"
	KeyDependentSettings = "dependent_settings"
	KeySourceExcludes    = "source_excludes"
	KeySourcePatterns    = "source_patterns"
)

// Unit is one loaded and fully resolved unit file
type Unit struct {
	Path string     `json:"path"` // normalized path
	Data *value.Map `json:"data"`
}

// Normalize returns the canonical form of a unit path, used as its identity
func Normalize(path string) string {
	return filepath.Clean(path)
}

// Targets returns the target records declared by the unit, in order.
// A missing targets key means no targets.
func (u *Unit) Targets() ([]*value.Map, error) {
	v, ok := u.Data.Get(KeyTargets)
	if !ok {
		return nil, nil
	}
	list, ok := v.(*value.List)
	if !ok {
		return nil, &gyperr.ParseError{Path: u.Path, Err: fmt.Errorf("targets is a %s, not a list", v.Kind())}
	}

	out := make([]*value.Map, 0, list.Len())
	for i, item := range list.Values() {
		m, ok := item.(*value.Map)
		if !ok {
			return nil, &gyperr.ParseError{Path: u.Path, Err: fmt.Errorf("targets[%d] is a %s, not a mapping", i, item.Kind())}
		}
		out = append(out, m)
	}
	return out, nil
}

// Settings returns the unit-wide settings mapping, if any
func (u *Unit) Settings() (*value.Map, bool) {
	return u.Data.GetMap(KeySettings)
}

// ResolvePath resolves rel against the directory of the unit at unitPath.
// Absolute paths are only normalized.
func ResolvePath(unitPath, rel string) string {
	if filepath.IsAbs(rel) {
		return Normalize(rel)
	}
	return Normalize(filepath.Join(filepath.Dir(unitPath), rel))
}

// QualifiedName joins a unit path and a target name into the global target key
func QualifiedName(unitPath, name string) string {
	return unitPath + ":" + name
}

// SplitReference resolves a dependency reference written in unitPath.
//
// A bare "name" refers to a target of unitPath itself. A "rel/other.gyp:name"
// reference is resolved against the directory of unitPath. The split happens
// at the first colon.
func SplitReference(unitPath, ref string) (unit, name, qualified string) {
	unitPart, namePart, found := strings.Cut(ref, ":")
	if !found {
		unit = unitPath
		name = ref
	} else {
		name = namePart
		unit = ResolvePath(unitPath, unitPart)
	}
	return unit, name, QualifiedName(unit, name)
}

// Target is a target record together with its identity
type Target struct {
	Name      string     `json:"name"`
	Qualified string     `json:"qualified"`
	Unit      string     `json:"unit"`
	Record    *value.Map `json:"record"`
}

// Type returns the declared target type, empty when absent
func (t *Target) Type() TargetType {
	s, _ := t.Record.GetString(KeyType)
	return TargetType(s)
}

// IsStaticLibrary reports whether the target links as a static library
func (t *Target) IsStaticLibrary() bool {
	return t.Type() == TypeStaticLibrary
}

// Dependencies returns the dependency references as currently stored
func (t *Target) Dependencies() []string {
	list, ok := t.Record.GetList(KeyDependencies)
	if !ok {
		return nil
	}
	return list.Strings()
}

// StringList returns the string items under key, nil when absent
func (t *Target) StringList(key string) []string {
	list, ok := t.Record.GetList(key)
	if !ok {
		return nil
	}
	return list.Strings()
}

// TargetTable maps qualified names to targets and remembers insertion order
type TargetTable struct {
	order   []string
	targets map[string]*Target
}

// NewTargetTable creates an empty table
func NewTargetTable() *TargetTable {
	return &TargetTable{targets: make(map[string]*Target)}
}

// Add inserts a target. Adding a qualified name twice is an error.
func (tt *TargetTable) Add(t *Target) error {
	if _, exists := tt.targets[t.Qualified]; exists {
		return &gyperr.DuplicateTargetError{Unit: t.Unit, Name: t.Name}
	}
	tt.order = append(tt.order, t.Qualified)
	tt.targets[t.Qualified] = t
	return nil
}

// Get returns the target with the given qualified name
func (tt *TargetTable) Get(qualified string) (*Target, bool) {
	t, ok := tt.targets[qualified]
	return t, ok
}

// Len returns the number of targets
func (tt *TargetTable) Len() int { return len(tt.order) }

// Names returns qualified names in insertion order
func (tt *TargetTable) Names() []string {
	out := make([]string, len(tt.order))
	copy(out, tt.order)
	return out
}

// All returns the targets in insertion order
func (tt *TargetTable) All() []*Target {
	out := make([]*Target, 0, len(tt.order))
	for _, name := range tt.order {
		out = append(out, tt.targets[name])
	}
	return out
}

// BuildTargetTable collects the targets of every unit, units in the order
// given and targets in declaration order
func BuildTargetTable(units []*Unit) (*TargetTable, error) {
	table := NewTargetTable()
	for _, u := range units {
		records, err := u.Targets()
		if err != nil {
			return nil, err
		}
		for i, rec := range records {
			name, ok := rec.GetString(KeyName)
			if !ok || name == "" {
				return nil, &gyperr.ParseError{Path: u.Path, Err: fmt.Errorf("targets[%d] has no name", i)}
			}
			t := &Target{
				Name:      name,
				Qualified: QualifiedName(u.Path, name),
				Unit:      u.Path,
				Record:    rec,
			}
			if err := table.Add(t); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}
