package document

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"b1poster/pkg/models"
)

// Fixed document type codes.
const (
	DocTypeItems    = "dDocument_Items"
	DocTypeService  = "dDocument_Service"
	DocTypeCustomer = "rCustomer"
)

// Build turns req into the payload for a document of the given kind.
// Payments and item/service documents use different mappings; both share
// the header fields and finish with the header overrides of req, which win
// over every computed value.
func Build(kind Kind, req *models.RequestContext) (Payload, error) {
	if !kind.Valid() {
		return nil, NewInvalidRequestError(kind, "kind", "unsupported document kind", ErrUnknownKind)
	}
	if req == nil {
		return nil, NewInvalidRequestError(kind, "request", "request is nil", nil)
	}

	payload, err := buildHeader(kind, req)
	if err != nil {
		return nil, err
	}

	if kind.IsPayment() {
		err = buildPayment(kind, req, payload)
	} else {
		err = buildDocument(req, payload)
	}
	if err != nil {
		return nil, err
	}

	applyHeaderOverrides(req, payload)
	return payload, nil
}

func buildHeader(kind Kind, req *models.RequestContext) (Payload, error) {
	if strings.TrimSpace(req.CardCode) == "" {
		return nil, NewInvalidRequestError(kind, "CardCode", "customer code is required", nil)
	}
	if strings.TrimSpace(req.TaxDate) == "" {
		return nil, NewInvalidRequestError(kind, "TaxDate", "tax date is required", nil)
	}
	return Payload{
		"CardCode": req.CardCode,
		"TaxDate":  req.TaxDate,
		"DocDate":  req.TaxDate,
	}, nil
}

func buildPayment(kind Kind, req *models.RequestContext, payload Payload) error {
	payload["BPLID"] = req.BranchID

	sum := decimal.Zero
	if req.ActualDeposit != nil && !req.ActualDeposit.IsZero() {
		sum = *req.ActualDeposit
	}
	if kind == IncomingPayment {
		payload["CashSum"] = amount(sum)
		payload["CashAccount"] = req.CashAccount
	} else {
		payload["TransferSum"] = amount(sum)
		payload["TransferAccount"] = req.CashAccount
	}

	invoices := make([]Payload, 0, len(req.PaymentInvoices))
	for _, inv := range req.PaymentInvoices {
		if inv.SumApplied.IsZero() {
			continue
		}
		invKind, err := KindFromObjectType(inv.ObjectType)
		if err != nil {
			return NewInvalidRequestError(kind, "PaymentInvoices.ObjectType", "cannot resolve invoice type", err)
		}
		invoices = append(invoices, Payload{
			"DocEntry":    inv.DocEntry,
			"InvoiceType": invKind.InvoiceType(),
			"SumApplied":  amount(inv.SumApplied),
		})
	}
	payload["PaymentInvoices"] = invoices
	payload["DocType"] = DocTypeCustomer
	return nil
}

func buildDocument(req *models.RequestContext, payload Payload) error {
	if req.IsItemMode() {
		payload["DocType"] = DocTypeItems
	} else {
		payload["DocType"] = DocTypeService
	}
	payload["SalesPersonCode"] = req.SalesEmpCode
	payload["DocumentsOwner"] = req.OwnerCode
	payload[FieldJournalMemo] = req.JournalMemo

	assigner := req.BaseLines
	if assigner == nil {
		assigner = DefaultBaseLines
	}

	lines := make([]Payload, 0, len(req.DetailLines))
	for i := range req.DetailLines {
		lines = append(lines, buildLine(req, &req.DetailLines[i], assigner))
	}
	payload[FieldDocumentLines] = lines

	payload["BPL_IDAssignedToInvoice"] = req.BranchID
	payload["DocDueDate"] = firstNonEmpty(req.DueDate, req.DocDueDate, req.TaxDate)
	if req.RefNo != "" {
		payload["NumAtCard"] = req.RefNo
	}
	return nil
}

func buildLine(req *models.RequestContext, line *models.DetailLine, assigner models.BaseLineAssigner) Payload {
	out := Payload{
		"Quantity": amount(line.Quantity),
	}
	if req.IsItemMode() {
		out["ItemCode"] = line.ItemCode
	} else {
		out["AccountCode"] = line.ItemCode
	}

	if req.PriceAfterVAT {
		cost := line.Cost
		if !req.NegativeAmount {
			cost = cost.Abs()
		}
		out["PriceAfterVAT"] = amount(cost)
	} else {
		out["Price"] = amount(line.Cost)
	}

	if line.Description != "" {
		out["ItemDescription"] = line.Description
	}
	if line.Text != "" {
		out["ItemDetails"] = line.Text
	}

	if ref := assigner.AssignBaseLine(req, *line); ref != nil {
		out[FieldBaseEntry] = ref.BaseEntry
		out[FieldBaseLine] = ref.BaseLine
		out[FieldBaseType] = ref.BaseType
	}

	if line.TaxCode != "" {
		out["VatGroup"] = line.TaxCode
	}

	for key, override := range req.LineOverrides {
		if value, ok := override.Resolve(line); ok {
			out[key] = wireValue(value)
		}
	}

	if line.UoMEntry != "" {
		out["UoMEntry"] = line.UoMEntry
	}

	for _, udf := range line.UDFs {
		if includeUDF(udf.Value) {
			out[udf.Column] = wireValue(udf.Value)
		}
	}
	return out
}

// applyHeaderOverrides writes every set header override. The header has no
// source line, so a DEFAULT marker is written as the text it was given.
func applyHeaderOverrides(req *models.RequestContext, payload Payload) {
	for key, override := range req.HeaderOverrides {
		if !override.IsSet() {
			continue
		}
		payload[key] = wireValue(override.Text())
	}
}

// DefaultBaseLines copies the base document fields of a line when the line
// has a base entry.
var DefaultBaseLines models.BaseLineAssigner = models.BaseLineFunc(defaultBaseLine)

func defaultBaseLine(_ *models.RequestContext, line models.DetailLine) *models.BaseLineRef {
	if line.BaseEntry == nil {
		return nil
	}
	ref := &models.BaseLineRef{BaseEntry: *line.BaseEntry}
	if line.BaseLine != nil {
		ref.BaseLine = *line.BaseLine
	}
	if line.BaseType != nil {
		ref.BaseType = *line.BaseType
	}
	return ref
}

// includeUDF drops blank values: nil, "", "undefined", "0", false and
// numeric zero.
func includeUDF(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != "" && val != "undefined" && val != "0"
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case json.Number:
		return val != "" && val != "0"
	case decimal.Decimal:
		return !val.IsZero()
	case *decimal.Decimal:
		return val != nil && !val.IsZero()
	default:
		return true
	}
}

func wireValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return amount(val)
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		return amount(*val)
	default:
		return v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
