package document

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Payload field names shared by the builder and the compensator.
const (
	FieldDocumentLines = "DocumentLines"
	FieldJournalMemo   = "JournalMemo"
	FieldBaseEntry     = "BaseEntry"
	FieldBaseLine      = "BaseLine"
	FieldBaseType      = "BaseType"
)

// Payload is a document body ready for submission.
type Payload map[string]any

// Lines returns the document lines of p, or nil for payments. Lines stored
// as []map[string]any, e.g. by a payload hook, are converted in place so
// edits to the returned lines reach p.
func (p Payload) Lines() []Payload {
	switch lines := p[FieldDocumentLines].(type) {
	case []Payload:
		return lines
	case []map[string]any:
		out := make([]Payload, len(lines))
		for i, line := range lines {
			out[i] = line
		}
		p[FieldDocumentLines] = out
		return out
	case []any:
		out := make([]Payload, 0, len(lines))
		for _, line := range lines {
			switch m := line.(type) {
			case Payload:
				out = append(out, m)
			case map[string]any:
				out = append(out, m)
			default:
				return nil
			}
		}
		p[FieldDocumentLines] = out
		return out
	default:
		return nil
	}
}

// Clone returns a copy of p whose lines can be modified without touching p.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for key, value := range p {
		switch v := value.(type) {
		case []Payload:
			lines := make([]Payload, len(v))
			for i, line := range v {
				lines[i] = line.Clone()
			}
			out[key] = lines
		case []map[string]any:
			lines := make([]Payload, len(v))
			for i, line := range v {
				lines[i] = Payload(line).Clone()
			}
			out[key] = lines
		default:
			out[key] = value
		}
	}
	return out
}

// amount renders a decimal as a bare JSON number.
func amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
