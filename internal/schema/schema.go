// Package schema declares per-plugin field groups and builds the
// validating sample containers producers fill each cycle. Declarations
// are descriptor-driven: an ordered list of (name, kind) pairs per
// group, consumed by a generic container with no per-plugin types.
package schema

import (
	"errors"
	"fmt"

	"github.com/perchlab/perch/internal/model"
)

var (
	// ErrSchemaViolation is returned for writes to undeclared metrics
	// and for declarations that break schema rules.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrTypeMismatch is returned when a value's numeric kind does not
	// match the declared kind. Conversions are always explicit: an
	// integer is not accepted where a float is declared, and a float is
	// never narrowed to an integer.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrIncomplete is returned when a container is read back before
	// every declared metric has been set.
	ErrIncomplete = errors.New("incomplete sample")

	// ErrFrozen is returned for declarations after the schema is frozen.
	ErrFrozen = errors.New("schema is frozen")
)

// Schema holds the field groups a plugin declared. It is built before
// the plugin is registered and frozen at plugin construction; after
// that it only hands out containers.
type Schema struct {
	groups  []model.Group
	byName  map[string]int
	frozen  bool
}

// New returns an empty schema ready for declarations.
func New() *Schema {
	return &Schema{byName: make(map[string]int)}
}

// DeclareGroup registers a field group. It fails when the schema is
// frozen, when the group name is reused, when a metric name repeats
// within the group, when the group is empty, or when the hint is not a
// recognized render hint.
func (s *Schema) DeclareGroup(name string, fields []model.Field, hint model.RenderHint) error {
	if s.frozen {
		return fmt.Errorf("declare group %q: %w", name, ErrFrozen)
	}
	if name == "" {
		return fmt.Errorf("%w: empty group name", ErrSchemaViolation)
	}
	if _, dup := s.byName[name]; dup {
		return fmt.Errorf("%w: group %q already declared", ErrSchemaViolation, name)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: group %q declares no metrics", ErrSchemaViolation, name)
	}
	if !hint.Valid() {
		return fmt.Errorf("%w: group %q: unknown render hint %q", ErrSchemaViolation, name, hint)
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("%w: group %q declares an unnamed metric", ErrSchemaViolation, name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: group %q: metric %q already declared", ErrSchemaViolation, name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	group := model.Group{
		Name:   name,
		Fields: append([]model.Field(nil), fields...),
		Hint:   hint,
	}
	s.byName[name] = len(s.groups)
	s.groups = append(s.groups, group)
	return nil
}

// Freeze makes the schema immutable. Plugin construction calls this;
// later declarations fail with ErrFrozen.
func (s *Schema) Freeze() { s.frozen = true }

// Groups returns the declared groups in declaration order.
func (s *Schema) Groups() []model.Group { return s.groups }

// Group looks up one group by name.
func (s *Schema) Group(name string) (model.Group, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return model.Group{}, false
	}
	return s.groups[idx], true
}

// Batch maps group name to the writable container a producer fills in
// one cycle.
type Batch map[string]*Container

// NewBatch returns one fresh container per declared group.
func (s *Schema) NewBatch() Batch {
	batch := make(Batch, len(s.groups))
	for _, g := range s.groups {
		batch[g.Name] = newContainer(g)
	}
	return batch
}
