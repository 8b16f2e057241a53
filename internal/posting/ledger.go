// Package posting submits documents to the Service Layer and keeps track of
// what a multi-document operation created so it can be rolled back.
//
// A typical operation owns one Ledger:
//
//	ledger := posting.NewLedger()
//	resp := poster.CreateDocument(ctx, document.ARInvoice, invoiceReq, ledger)
//	...
//	resp = poster.CreateDocument(ctx, document.IncomingPayment, paymentReq, ledger)
//	if resp.Failed() {
//	    err := compensator.CompensateAll(ctx, ledger)
//	}
//
// Ledgers are not safe for concurrent use; concurrent operations each need
// their own.
package posting

import (
	"b1poster/internal/document"
	"b1poster/pkg/models"
)

// CreationRecord describes one document created during an operation.
type CreationRecord struct {
	Kind     document.Kind
	Request  *models.RequestContext
	Payload  document.Payload
	DocEntry int
}

// Ledger is the ordered list of documents created by one operation.
type Ledger struct {
	records []CreationRecord
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a successfully created document.
func (l *Ledger) Record(kind document.Kind, req *models.RequestContext, payload document.Payload, docEntry int) {
	l.records = append(l.records, CreationRecord{
		Kind:     kind,
		Request:  req,
		Payload:  payload,
		DocEntry: docEntry,
	})
}

// Len returns the number of recorded documents.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.records)
}

// Records returns the recorded documents in creation order.
func (l *Ledger) Records() []CreationRecord {
	if l == nil {
		return nil
	}
	out := make([]CreationRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Last returns the most recently created document.
func (l *Ledger) Last() (CreationRecord, bool) {
	if l.Len() == 0 {
		return CreationRecord{}, false
	}
	return l.records[len(l.records)-1], true
}

// Reset empties the ledger.
func (l *Ledger) Reset() {
	l.records = nil
}
