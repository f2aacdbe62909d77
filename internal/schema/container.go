package schema

import (
	"fmt"

	"github.com/perchlab/perch/internal/model"
)

// Container is the transient, per-cycle structure for one field group.
// Writes are validated immediately: unknown metric names and wrong
// numeric kinds fail at Set time, not at persistence time.
type Container struct {
	group  model.Group
	index  map[string]int
	values []model.Value
	set    []bool
}

func newContainer(group model.Group) *Container {
	c := &Container{
		group:  group,
		index:  make(map[string]int, len(group.Fields)),
		values: make([]model.Value, len(group.Fields)),
		set:    make([]bool, len(group.Fields)),
	}
	for i, f := range group.Fields {
		c.index[f.Name] = i
		c.values[i] = model.Value{Name: f.Name, Kind: f.Kind}
	}
	return c
}

// GroupName returns the field group this container belongs to.
func (c *Container) GroupName() string { return c.group.Name }

// Hint returns the group's render hint.
func (c *Container) Hint() model.RenderHint { return c.group.Hint }

// Set stores a value under a declared metric name. Accepted value
// types are int/int64 for integer metrics and float64 for float
// metrics. Anything else is a type mismatch: callers convert
// explicitly instead of relying on narrowing or widening.
func (c *Container) Set(name string, value any) error {
	idx, ok := c.index[name]
	if !ok {
		return fmt.Errorf("%w: metric %q not declared in group %q", ErrSchemaViolation, name, c.group.Name)
	}
	field := c.group.Fields[idx]

	switch v := value.(type) {
	case int:
		if field.Kind != model.KindInt {
			return fmt.Errorf("%w: metric %q declared %s, got integer", ErrTypeMismatch, name, field.Kind)
		}
		c.values[idx].Int = int64(v)
	case int64:
		if field.Kind != model.KindInt {
			return fmt.Errorf("%w: metric %q declared %s, got integer", ErrTypeMismatch, name, field.Kind)
		}
		c.values[idx].Int = v
	case float64:
		if field.Kind != model.KindFloat {
			return fmt.Errorf("%w: metric %q declared %s, got float", ErrTypeMismatch, name, field.Kind)
		}
		c.values[idx].Float = v
	default:
		return fmt.Errorf("%w: metric %q: unsupported value type %T", ErrTypeMismatch, name, value)
	}

	c.set[idx] = true
	return nil
}

// SetInt stores an integer metric value.
func (c *Container) SetInt(name string, v int64) error { return c.Set(name, v) }

// SetFloat stores a float metric value.
func (c *Container) SetFloat(name string, v float64) error { return c.Set(name, v) }

// Complete reports whether every declared metric has been set.
func (c *Container) Complete() bool {
	for _, ok := range c.set {
		if !ok {
			return false
		}
	}
	return true
}

// Missing lists declared metrics that have not been set yet.
func (c *Container) Missing() []string {
	var missing []string
	for i, ok := range c.set {
		if !ok {
			missing = append(missing, c.group.Fields[i].Name)
		}
	}
	return missing
}

// Values returns the typed values in declaration order. It fails with
// ErrIncomplete when any declared metric is unset, so partial records
// can never reach the store.
func (c *Container) Values() ([]model.Value, error) {
	if missing := c.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: group %q missing %v", ErrIncomplete, c.group.Name, missing)
	}
	return append([]model.Value(nil), c.values...), nil
}
