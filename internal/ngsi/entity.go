package ngsi

import (
	"bytes"
	"encoding/json"
)

// Entity is a normalized entity. Besides the bare id and type it holds named
// attributes in insertion order. A nil attribute records an absent value: the
// name is known but nothing is emitted for it.
type Entity struct {
	ID    string
	Type  string
	attrs []field
}

type field struct {
	name  string
	value *Attribute
}

// NewEntity creates an entity without attributes.
func NewEntity(id, entityType string) *Entity {
	return &Entity{ID: id, Type: entityType}
}

// Set stores an attribute, keeping the position of an existing name.
func (e *Entity) Set(name string, attr *Attribute) {
	for i := range e.attrs {
		if e.attrs[i].name == name {
			e.attrs[i].value = attr
			return
		}
	}
	e.attrs = append(e.attrs, field{name: name, value: attr})
}

// Get returns the attribute stored under name. ok is false when the
// attribute is unknown or absent.
func (e *Entity) Get(name string) (attr *Attribute, ok bool) {
	for _, f := range e.attrs {
		if f.name == name {
			return f.value, f.value != nil
		}
	}
	return nil, false
}

// Names returns every attribute name including absent ones, in order.
func (e *Entity) Names() []string {
	names := make([]string, 0, len(e.attrs))
	for _, f := range e.attrs {
		names = append(names, f.name)
	}
	return names
}

// Present returns the names of the attributes that hold a value, in order.
func (e *Entity) Present() []string {
	names := make([]string, 0, len(e.attrs))
	for _, f := range e.attrs {
		if f.value != nil {
			names = append(names, f.name)
		}
	}
	return names
}

// MarshalJSON writes id and type first, then the present attributes in order.
func (e *Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	if err := writeMember(&buf, "id", e.ID, true); err != nil {
		return nil, err
	}
	if err := writeMember(&buf, "type", e.Type, false); err != nil {
		return nil, err
	}
	for _, f := range e.attrs {
		if f.value == nil {
			continue
		}
		if err := writeMember(&buf, f.name, f.value, false); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, name string, value any, first bool) error {
	if !first {
		buf.WriteByte(',')
	}
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}
