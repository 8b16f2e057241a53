// Package workbook reads upload workbooks into posting requests.
//
// Every worksheet holds one header row followed by data rows. Consecutive
// rows sharing the same RefNo and CardCode form one request: header columns
// are taken from the first row of the group and every row contributes a
// detail line (and, on payment tabs, a settled invoice).
//
// Recognised columns (case-insensitive):
//
//	Header:  CardCode TaxDate DueDate DocDueDate RefNo BranchID SalesEmpCode
//	         OwnerCode JournalMemo CashAccount ActualDeposit Serial
//	Line:    ItemCode Quantity Cost Description Text TaxCode UoMEntry
//	         BaseEntry BaseLine BaseType
//	Payment: InvoiceDocEntry InvoiceObjectType SumApplied
//
// Columns starting with U_ become user-defined fields; any other column is
// kept in DetailLine.Extra so profiles can refer to it with DEFAULT-<name>.
package workbook

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"b1poster/internal/logger"
	"b1poster/pkg/models"
)

// ErrInvalidWorkbook is returned when a workbook cannot be turned into requests.
var ErrInvalidWorkbook = errors.New("invalid upload workbook")

// Workbook is the parsed content of an upload file.
type Workbook struct {
	Path   string
	Serial string
	Sheets []Sheet
}

// Sheet is one worksheet and its requests in row order.
type Sheet struct {
	Name     string
	Requests []models.RequestContext
}

// CellError locates a cell that could not be parsed.
type CellError struct {
	Sheet  string
	Row    int
	Column string
	Err    error
}

// Error implements the error interface.
func (e *CellError) Error() string {
	return fmt.Sprintf("workbook: sheet %q row %d column %s: %v", e.Sheet, e.Row, e.Column, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CellError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidWorkbook.
func (e *CellError) Is(target error) bool {
	return target == ErrInvalidWorkbook
}

// Reader parses upload workbooks.
type Reader struct {
	log zerolog.Logger
}

// NewReader creates a workbook reader.
func NewReader() *Reader {
	return &Reader{log: logger.WithComponent("workbook")}
}

// Read parses the workbook at path. serial identifies the upload in log
// events; when empty, a Serial column or a generated id is used.
func (r *Reader) Read(path, serial string) (*Workbook, error) {
	const op = "Read"

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open workbook %s: %w", op, path, err)
	}
	defer f.Close()

	wb := &Workbook{Path: path, Serial: serial}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read sheet %q: %w", op, name, err)
		}
		if len(rows) < 2 {
			r.log.Debug().Str("sheet", name).Msg("Skipping sheet without data rows")
			continue
		}

		sheet, err := r.parseSheet(name, rows, wb)
		if err != nil {
			return nil, err
		}
		wb.Sheets = append(wb.Sheets, *sheet)
	}

	if wb.Serial == "" {
		wb.Serial = uuid.New().String()
	}
	for i := range wb.Sheets {
		for j := range wb.Sheets[i].Requests {
			req := &wb.Sheets[i].Requests[j]
			if req.Serial == "" {
				req.Serial = wb.Serial
			}
		}
	}

	r.log.Info().
		Str("file", path).
		Str("serial", wb.Serial).
		Int("sheets", len(wb.Sheets)).
		Msg("Workbook read")
	return wb, nil
}

type rowReader struct {
	sheet   string
	row     int
	headers []string
	cells   []string
}

func (rr *rowReader) get(column string) string {
	for i, h := range rr.headers {
		if strings.EqualFold(h, column) && i < len(rr.cells) {
			return strings.TrimSpace(rr.cells[i])
		}
	}
	return ""
}

func (rr *rowReader) cellErr(column string, err error) error {
	return &CellError{Sheet: rr.sheet, Row: rr.row, Column: column, Err: err}
}

func (rr *rowReader) decimal(column string) (decimal.Decimal, error) {
	s := rr.get(column)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, rr.cellErr(column, err)
	}
	return d, nil
}

func (rr *rowReader) optionalInt(column string) (*int, error) {
	s := rr.get(column)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, rr.cellErr(column, err)
	}
	return &n, nil
}

var headerColumns = map[string]bool{
	"cardcode": true, "taxdate": true, "duedate": true, "docduedate": true,
	"refno": true, "branchid": true, "salesempcode": true, "ownercode": true,
	"journalmemo": true, "cashaccount": true, "actualdeposit": true, "serial": true,
	"itemcode": true, "quantity": true, "cost": true, "description": true,
	"text": true, "taxcode": true, "uomentry": true, "baseentry": true,
	"baseline": true, "basetype": true, "invoicedocentry": true,
	"invoiceobjecttype": true, "sumapplied": true,
}

func (r *Reader) parseSheet(name string, rows [][]string, wb *Workbook) (*Sheet, error) {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	sheet := &Sheet{Name: name}
	var current *models.RequestContext
	var groupKey string

	for i, cells := range rows[1:] {
		rr := &rowReader{sheet: name, row: i + 2, headers: headers, cells: cells}
		if rr.get("CardCode") == "" && rr.get("ItemCode") == "" && rr.get("InvoiceDocEntry") == "" {
			continue
		}

		key := rr.get("RefNo") + "\x00" + rr.get("CardCode")
		if current == nil || key != groupKey || rr.get("RefNo") == "" {
			if current != nil {
				sheet.Requests = append(sheet.Requests, *current)
			}
			req, err := r.parseHeader(rr, wb)
			if err != nil {
				return nil, err
			}
			req.TabName = name
			req.Count = len(sheet.Requests) + 1
			current = req
			groupKey = key
		}

		if err := r.parseLine(rr, current); err != nil {
			return nil, err
		}
	}
	if current != nil {
		sheet.Requests = append(sheet.Requests, *current)
	}
	return sheet, nil
}

func (r *Reader) parseHeader(rr *rowReader, wb *Workbook) (*models.RequestContext, error) {
	req := &models.RequestContext{
		CardCode:    rr.get("CardCode"),
		TaxDate:     rr.get("TaxDate"),
		DueDate:     rr.get("DueDate"),
		DocDueDate:  rr.get("DocDueDate"),
		RefNo:       rr.get("RefNo"),
		JournalMemo: rr.get("JournalMemo"),
		CashAccount: rr.get("CashAccount"),
		Serial:      rr.get("Serial"),
		SourceFile:  filepath.Base(wb.Path),
	}
	if req.Serial == "" {
		req.Serial = wb.Serial
	} else if wb.Serial == "" {
		wb.Serial = req.Serial
	}

	branch, err := rr.optionalInt("BranchID")
	if err != nil {
		return nil, err
	}
	if branch != nil {
		req.BranchID = *branch
	}
	if req.SalesEmpCode, err = rr.optionalInt("SalesEmpCode"); err != nil {
		return nil, err
	}
	if req.OwnerCode, err = rr.optionalInt("OwnerCode"); err != nil {
		return nil, err
	}
	if rr.get("ActualDeposit") != "" {
		deposit, err := rr.decimal("ActualDeposit")
		if err != nil {
			return nil, err
		}
		req.ActualDeposit = &deposit
	}
	return req, nil
}

func (r *Reader) parseLine(rr *rowReader, req *models.RequestContext) error {
	if entry := rr.get("InvoiceDocEntry"); entry != "" {
		docEntry, err := strconv.Atoi(entry)
		if err != nil {
			return rr.cellErr("InvoiceDocEntry", err)
		}
		objectType, err := strconv.Atoi(rr.get("InvoiceObjectType"))
		if err != nil {
			return rr.cellErr("InvoiceObjectType", err)
		}
		sum, err := rr.decimal("SumApplied")
		if err != nil {
			return err
		}
		req.PaymentInvoices = append(req.PaymentInvoices, models.PaymentInvoice{
			DocEntry:   docEntry,
			ObjectType: objectType,
			SumApplied: sum,
		})
	}

	if rr.get("ItemCode") == "" {
		return nil
	}

	line := models.DetailLine{
		ItemCode:    rr.get("ItemCode"),
		Description: rr.get("Description"),
		Text:        rr.get("Text"),
		TaxCode:     rr.get("TaxCode"),
		UoMEntry:    rr.get("UoMEntry"),
	}
	var err error
	if line.Quantity, err = rr.decimal("Quantity"); err != nil {
		return err
	}
	if line.Cost, err = rr.decimal("Cost"); err != nil {
		return err
	}
	if line.BaseEntry, err = rr.optionalInt("BaseEntry"); err != nil {
		return err
	}
	if line.BaseLine, err = rr.optionalInt("BaseLine"); err != nil {
		return err
	}
	if line.BaseType, err = rr.optionalInt("BaseType"); err != nil {
		return err
	}

	for i, h := range rr.headers {
		if h == "" || headerColumns[strings.ToLower(h)] {
			continue
		}
		value := ""
		if i < len(rr.cells) {
			value = strings.TrimSpace(rr.cells[i])
		}
		if strings.HasPrefix(h, "U_") {
			line.UDFs = append(line.UDFs, models.UDF{Column: h, Value: value})
			continue
		}
		if line.Extra == nil {
			line.Extra = make(map[string]any)
		}
		line.Extra[h] = value
	}

	req.DetailLines = append(req.DetailLines, line)
	return nil
}
