package models

import (
	"fmt"
	"strings"
)

// DefaultMarker introduces a value that is read from the source line.
// The attribute name follows the first "-", e.g. "DEFAULT-costCenter".
const DefaultMarker = "DEFAULT"

type overrideKind int

const (
	overrideUnset overrideKind = iota
	overrideLiteral
	overrideDefaultFrom
)

// FieldOverride is an explicit value for a payload field. The zero value is
// unset and is skipped when overrides are applied.
type FieldOverride struct {
	kind  overrideKind
	value any
	attr  string
}

// Literal sets the field to v. A nil v is treated as unset.
func Literal(v any) FieldOverride {
	if v == nil {
		return FieldOverride{}
	}
	return FieldOverride{kind: overrideLiteral, value: v}
}

// DefaultFrom sets a line field to the value of the named line attribute.
func DefaultFrom(attr string) FieldOverride {
	return FieldOverride{kind: overrideDefaultFrom, attr: strings.TrimSpace(attr)}
}

// ParseOverride converts an untyped override value, as found in profiles and
// request files, into a FieldOverride. Strings containing DefaultMarker are
// resolved to DefaultFrom using the segment after the first "-".
func ParseOverride(raw any) FieldOverride {
	s, ok := raw.(string)
	if !ok || !strings.Contains(s, DefaultMarker) {
		return Literal(raw)
	}
	parts := strings.Split(s, "-")
	o := DefaultFrom("")
	if len(parts) >= 2 {
		o = DefaultFrom(parts[1])
	}
	o.value = s
	return o
}

// ParseOverrides applies ParseOverride to every value of raw.
func ParseOverrides(raw map[string]any) map[string]FieldOverride {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]FieldOverride, len(raw))
	for key, value := range raw {
		out[key] = ParseOverride(value)
	}
	return out
}

// IsSet reports whether the override carries a value.
func (o FieldOverride) IsSet() bool {
	return o.kind != overrideUnset
}

// IsDefault reports whether the override reads from the source line.
func (o FieldOverride) IsDefault() bool {
	return o.kind == overrideDefaultFrom
}

// Attr returns the attribute name of a DefaultFrom override.
func (o FieldOverride) Attr() string {
	return o.attr
}

// Text returns the value as written. For DefaultFrom overrides this is the
// marker string itself, e.g. "DEFAULT-costCenter".
func (o FieldOverride) Text() any {
	switch o.kind {
	case overrideLiteral:
		return o.value
	case overrideDefaultFrom:
		if s, ok := o.value.(string); ok {
			return s
		}
		return DefaultMarker + "-" + o.attr
	default:
		return nil
	}
}

// Resolve returns the override value. DefaultFrom overrides read from line;
// the second result is false when nothing should be written.
func (o FieldOverride) Resolve(line *DetailLine) (any, bool) {
	switch o.kind {
	case overrideLiteral:
		return o.value, true
	case overrideDefaultFrom:
		if line == nil {
			return nil, false
		}
		v, _ := line.Attribute(o.attr)
		return v, true
	default:
		return nil, false
	}
}

func (o FieldOverride) String() string {
	switch o.kind {
	case overrideLiteral:
		return fmt.Sprintf("%v", o.value)
	case overrideDefaultFrom:
		return DefaultMarker + "-" + o.attr
	default:
		return "<unset>"
	}
}
