package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DocumentMode selects between item-based and service-based documents.
type DocumentMode string

const (
	ItemDocument    DocumentMode = "I"
	ServiceDocument DocumentMode = "S"
)

// RequestContext is the caller-supplied description of one document to post.
// It must not be modified while a payload is being built from it.
type RequestContext struct {
	// Business partner and dates
	CardCode   string // Customer or vendor code (required)
	TaxDate    string // Document/tax date, YYYY-MM-DD (required)
	DueDate    string // Preferred due date
	DocDueDate string // Secondary due date, used when DueDate is empty
	RefNo      string // Customer reference number (NumAtCard)
	BranchID   int    // Business place id

	// Document header
	Mode         DocumentMode // Item or service document
	SalesEmpCode *int         // Sales employee code
	OwnerCode    *int         // Documents owner
	JournalMemo  string       // Journal remarks

	// Payment header
	CashAccount     string           // Cash or transfer G/L account
	ActualDeposit   *decimal.Decimal // Amount actually received or paid
	PaymentInvoices []PaymentInvoice // Invoices settled by a payment

	// Lines and overrides
	DetailLines     []DetailLine
	HeaderOverrides map[string]FieldOverride
	LineOverrides   map[string]FieldOverride

	// Behaviour flags
	PriceAfterVAT  bool // Line cost is VAT-inclusive
	NegativeAmount bool // Keep the sign of VAT-inclusive line costs

	// Strategies; nil selects the built-in behaviour
	BaseLines   BaseLineAssigner
	PayloadHook PayloadHook

	// Upload metadata used in log events
	Serial     string // Upload serial identifier
	SourceFile string // Uploaded file name
	TabName    string // Worksheet the request came from
	Count      int    // Position of the request inside the tab
}

// IsItemMode reports whether lines carry item codes rather than G/L accounts.
func (r *RequestContext) IsItemMode() bool {
	return r.Mode != ServiceDocument
}

// PaymentInvoice references an existing document settled by a payment.
type PaymentInvoice struct {
	DocEntry   int             // Document being paid
	ObjectType int             // Numeric object type of that document
	SumApplied decimal.Decimal // Amount applied to it
}

// UDF is a user-defined field value attached to a line.
type UDF struct {
	Column string
	Value  any
}

// DetailLine is one line of a document request.
type DetailLine struct {
	Quantity    decimal.Decimal
	ItemCode    string // Item code or G/L account depending on the document mode
	Cost        decimal.Decimal
	Description string
	Text        string
	TaxCode     string
	UoMEntry    string

	// Base document linkage
	BaseEntry *int
	BaseLine  *int
	BaseType  *int

	UDFs  []UDF
	Extra map[string]any // Additional source columns, addressable by name
}

// Attribute returns the value of the named line attribute. Names are matched
// case-insensitively against the built-in fields first and Extra second.
func (l DetailLine) Attribute(name string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "quantity":
		return l.Quantity, true
	case "itemcode":
		return l.ItemCode, true
	case "cost":
		return l.Cost, true
	case "description":
		return l.Description, true
	case "text":
		return l.Text, true
	case "taxcode":
		return l.TaxCode, true
	case "uomentry", "uomentrytouse":
		return l.UoMEntry, true
	case "baseentry":
		return derefInt(l.BaseEntry)
	case "baseline":
		return derefInt(l.BaseLine)
	case "basetype":
		return derefInt(l.BaseType)
	}
	for key, value := range l.Extra {
		if strings.EqualFold(key, strings.TrimSpace(name)) {
			return value, true
		}
	}
	return nil, false
}

func derefInt(v *int) (any, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

// BaseLineRef links a document line to a line of a base document.
type BaseLineRef struct {
	BaseEntry int
	BaseLine  int
	BaseType  int
}

// BaseLineAssigner decides the base-document linkage of a line. Returning nil
// leaves the line unlinked.
type BaseLineAssigner interface {
	AssignBaseLine(req *RequestContext, line DetailLine) *BaseLineRef
}

// BaseLineFunc adapts a function to BaseLineAssigner.
type BaseLineFunc func(req *RequestContext, line DetailLine) *BaseLineRef

// AssignBaseLine calls f.
func (f BaseLineFunc) AssignBaseLine(req *RequestContext, line DetailLine) *BaseLineRef {
	return f(req, line)
}

// PayloadHook may adjust a built payload before it is submitted.
type PayloadHook interface {
	ProcessPayload(req *RequestContext, payload map[string]any)
}
