// Package document builds Service Layer document payloads from posting
// requests.
//
// The package knows the fixed set of document kinds the poster supports and
// the field mapping rules for each of them. It performs no I/O: Build turns a
// models.RequestContext into a Payload that can be submitted as-is.
//
// Supported document kinds:
//   - Goods receipt PO, goods return, A/P credit memo (purchasing)
//   - A/R invoice, A/R down payment, A/R credit memo (sales)
//   - Incoming and outgoing payments
package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a supported document kind. Its value is the numeric object
// type code the ERP uses for the document.
type Kind int

const (
	GoodsReceiptPO  Kind = 20
	ARInvoice       Kind = 13
	GoodsReturn     Kind = 21
	ARDownPayment   Kind = 203
	ARCreditMemo    Kind = 14
	APCreditMemo    Kind = 19
	IncomingPayment Kind = 24
	OutgoingPayment Kind = 46
)

type kindInfo struct {
	name        string
	resource    string
	invoiceType string
}

var registry = map[Kind]kindInfo{
	GoodsReceiptPO:  {"GoodsReceiptPO", "PurchaseDeliveryNotes", "it_PurchaseDeliveryNote"},
	ARInvoice:       {"ARInvoice", "Invoices", "it_Invoice"},
	GoodsReturn:     {"GoodsReturn", "PurchaseReturns", "it_PurchaseReturn"},
	ARDownPayment:   {"ARDownPayment", "DownPayments", "it_DownPayment"},
	ARCreditMemo:    {"ARCreditMemo", "CreditNotes", "it_CredItnote"},
	APCreditMemo:    {"APCreditMemo", "PurchaseCreditNotes", "it_PurchaseCreditNote"},
	IncomingPayment: {"IncomingPayment", "IncomingPayments", "it_Receipt"},
	OutgoingPayment: {"OutgoingPayment", "VendorPayments", "it_PaymentAdvice"},
}

// Kinds returns every supported kind.
func Kinds() []Kind {
	return []Kind{
		GoodsReceiptPO, ARInvoice, GoodsReturn, ARDownPayment,
		ARCreditMemo, APCreditMemo, IncomingPayment, OutgoingPayment,
	}
}

// KindFromObjectType maps a numeric object type code to its Kind.
func KindFromObjectType(code int) (Kind, error) {
	k := Kind(code)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: object type %d", ErrUnknownKind, code)
	}
	return k, nil
}

// ParseKind accepts a kind name (case-insensitive) or a numeric object type.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return KindFromObjectType(n)
	}
	for k, info := range registry {
		if strings.EqualFold(info.name, s) || strings.EqualFold(info.resource, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	_, ok := registry[k]
	return ok
}

// ObjectType returns the numeric object type code.
func (k Kind) ObjectType() int {
	return int(k)
}

// ResourceName returns the Service Layer entity set used to address k.
func (k Kind) ResourceName() string {
	return registry[k].resource
}

// InvoiceType returns the invoice type code used when a payment refers to a
// document of kind k.
func (k Kind) InvoiceType() string {
	return registry[k].invoiceType
}

// IsPayment reports whether k is an incoming or outgoing payment.
func (k Kind) IsPayment() bool {
	return k == IncomingPayment || k == OutgoingPayment
}

func (k Kind) String() string {
	if info, ok := registry[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}
