package importer

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Column names of the QuickBooks invoice export. Amount and tax appear with
// single or double internal spaces depending on the export version.
const (
	colInvoiceNo   = "Invoice No"
	colInvoiceDate = "Invoice Date"
	colCustomer    = "Customer"
	colTerms       = "Terms"
	colDueDate     = "Due Date"
	colStatus      = "Status"
	colProduct     = "Product/Service"
	colProductDesc = "Product/Service Description"
	colQty         = "Qty"
	colAmount      = "Product/Service Amount"
	colAmountAlt   = "Product/Service  Amount"
	colSalesTax    = "Product/Service Sales Tax"
	colSalesTaxAlt = "Product/Service  Sales Tax"
	colClass       = "Class"
)

const invoiceDateLayout = "01-02-2006" // MM-DD-YYYY

var validate = validator.New()

// LineItemInput is one incoming invoice line, parsed and ready for
// reconciliation. The sales export carries no unit-price column, so UnitPrice
// is derived (amount / qty, rounded to cents) and PriceDerived is set; the
// amount consistency check only applies to supplied prices.
type LineItemInput struct {
	ProductCode  string
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	PriceDerived bool
	Amount       decimal.Decimal
}

// Invoice is one logical invoice assembled from all of its file rows.
type Invoice struct {
	OrderNumber  string
	CustomerName string
	OrderDate    time.Time
	Terms        string
	DueDate      *time.Time
	Status       string
	Class        string
	TaxAmount    decimal.Decimal
	Items        []LineItemInput

	// Source line numbers (1-based, header excluded) for error context.
	Lines []int
}

// invoiceRowFields carries the required raw fields of a single row through
// struct validation before any type-level parsing happens.
type invoiceRowFields struct {
	InvoiceNo string `validate:"required"`
	Customer  string `validate:"required"`
	Product   string `validate:"required"`
	Qty       string `validate:"required"`
	Amount    string `validate:"required"`
}

// invoiceGroup is the raw material for one Invoice: every file row sharing an
// invoice number, in file order.
type invoiceGroup struct {
	orderNumber string
	rows        []Row
	lines       []int
}

// groupRowsByInvoice buckets raw rows into invoice units keyed by invoice
// number, preserving order of first appearance. One invoice may span several
// file rows (one row per line item); reconciliation needs the full set at
// once. Rows with a blank invoice number form single-row groups so their
// validation failure is reported per row.
func groupRowsByInvoice(rows []Row) []*invoiceGroup {
	var groups []*invoiceGroup
	index := map[string]*invoiceGroup{}

	for i, row := range rows {
		line := i + 1
		number := row.Field(colInvoiceNo)
		if number == "" {
			groups = append(groups, &invoiceGroup{rows: []Row{row}, lines: []int{line}})
			continue
		}
		group, ok := index[number]
		if !ok {
			group = &invoiceGroup{orderNumber: number}
			index[number] = group
			groups = append(groups, group)
		}
		group.rows = append(group.rows, row)
		group.lines = append(group.lines, line)
	}
	return groups
}

// parseInvoice turns one invoice group into a validated Invoice. Any failure
// is a row-level recoverable error covering the whole group.
func parseInvoice(group *invoiceGroup) (*Invoice, *RowError) {
	if len(group.rows) == 0 {
		return nil, rowErrorf(ErrCategoryValidation, nil, "empty invoice group")
	}

	head := group.rows[0]
	errCtx := map[string]interface{}{
		"invoice_no": group.orderNumber,
		"lines":      group.lines,
	}

	inv := &Invoice{
		OrderNumber:  group.orderNumber,
		CustomerName: head.Field(colCustomer),
		Terms:        head.Field(colTerms),
		Status:       head.Field(colStatus),
		Class:        head.Field(colClass),
		TaxAmount:    decimal.Zero,
		Lines:        group.lines,
	}

	if raw := head.Field(colInvoiceDate); raw != "" {
		date, err := time.Parse(invoiceDateLayout, raw)
		if err != nil {
			return nil, rowErrorf(ErrCategoryValidation, errCtx, "invalid invoice date %q (want MM-DD-YYYY)", raw)
		}
		inv.OrderDate = date
	}
	if raw := head.Field(colDueDate); raw != "" {
		date, err := time.Parse(invoiceDateLayout, raw)
		if err != nil {
			return nil, rowErrorf(ErrCategoryValidation, errCtx, "invalid due date %q (want MM-DD-YYYY)", raw)
		}
		inv.DueDate = &date
	}

	for _, row := range group.rows {
		fields := invoiceRowFields{
			InvoiceNo: group.orderNumber,
			Customer:  inv.CustomerName,
			Product:   row.Field(colProduct),
			Qty:       row.Field(colQty),
			Amount:    row.Field(colAmount, colAmountAlt),
		}
		if err := validate.Struct(fields); err != nil {
			return nil, rowErrorf(ErrCategoryValidation, errCtx, "missing required fields: %s", missingFields(err))
		}

		qty, err := decimal.NewFromString(fields.Qty)
		if err != nil {
			return nil, rowErrorf(ErrCategoryValidation, errCtx, "invalid quantity %q", fields.Qty)
		}
		if qty.LessThanOrEqual(decimal.Zero) {
			return nil, rowErrorf(ErrCategoryValidation, errCtx, "quantity must be positive, got %s", qty)
		}
		amount, err := decimal.NewFromString(fields.Amount)
		if err != nil {
			return nil, rowErrorf(ErrCategoryValidation, errCtx, "invalid amount %q", fields.Amount)
		}

		if raw := row.Field(colSalesTax, colSalesTaxAlt); raw != "" {
			tax, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, rowErrorf(ErrCategoryValidation, errCtx, "invalid sales tax %q", raw)
			}
			inv.TaxAmount = inv.TaxAmount.Add(tax)
		}

		inv.Items = append(inv.Items, LineItemInput{
			ProductCode:  strings.ToUpper(fields.Product),
			Description:  row.Field(colProductDesc),
			Quantity:     qty,
			UnitPrice:    amount.Div(qty).Round(2),
			PriceDerived: true,
			Amount:       amount,
		})
	}

	return inv, nil
}

func missingFields(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	names := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		names = append(names, ve.Field())
	}
	return strings.Join(names, ", ")
}
