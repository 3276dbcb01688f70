package web

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"billbook/internal/core"
)

// BillForm holds the raw form fields so a rejected submission can be shown
// again exactly as typed. A non-empty ID means the form edits that bill.
type BillForm struct {
	ID           string
	Date         string
	CustomerName string
	Product      string
	Quantity     string
	BasePrice    string
	TotalPrice   string
}

// Editing reports whether the form is in the editing state.
func (f BillForm) Editing() bool {
	return f.ID != ""
}

func emptyForm(now time.Time) BillForm {
	return BillForm{Date: core.DateOf(now).String()}
}

func formFromBill(b core.Bill) BillForm {
	return BillForm{
		ID:           strconv.FormatInt(b.ID, 10),
		Date:         b.Date.String(),
		CustomerName: b.CustomerName,
		Product:      b.Product,
		Quantity:     strconv.FormatInt(b.Quantity, 10),
		BasePrice:    core.FormatAmount(b.BasePrice),
		TotalPrice:   core.FormatAmount(b.TotalPrice),
	}
}

func formFromValues(v url.Values) BillForm {
	f := BillForm{
		ID:           strings.TrimSpace(v.Get("id")),
		Date:         strings.TrimSpace(v.Get("date")),
		CustomerName: sanitizeInput(v.Get("customer_name")),
		Product:      strings.TrimSpace(v.Get("product")),
		Quantity:     strings.TrimSpace(v.Get("quantity")),
		BasePrice:    strings.TrimSpace(v.Get("base_price")),
	}
	f.TotalPrice = previewTotal(f.Quantity, f.BasePrice)
	return f
}

// Input converts the form into a bill payload. The returned id is zero when
// the form creates a new bill.
func (f BillForm) Input() (int64, core.BillInput, error) {
	var id int64
	if f.Editing() {
		parsed, err := strconv.ParseInt(f.ID, 10, 64)
		if err != nil || parsed <= 0 {
			return 0, core.BillInput{}, errors.New("invalid bill id")
		}
		id = parsed
	}

	date, err := core.ParseDate(f.Date)
	if err != nil {
		return 0, core.BillInput{}, &core.ValidationError{Field: "date", Err: err}
	}
	qty, err := strconv.ParseInt(f.Quantity, 10, 64)
	if err != nil {
		return 0, core.BillInput{}, &core.ValidationError{Field: "quantity", Err: core.ErrInvalidQuantity}
	}
	price, err := core.ParseAmount(f.BasePrice)
	if err != nil {
		return 0, core.BillInput{}, &core.ValidationError{Field: "base_price", Err: core.ErrInvalidBasePrice}
	}

	in := core.BillInput{
		Date:         date,
		CustomerName: f.CustomerName,
		Product:      f.Product,
		Quantity:     qty,
		BasePrice:    price,
	}.Normalize()
	if err := in.Validate(); err != nil {
		return 0, core.BillInput{}, err
	}
	return id, in, nil
}

// previewTotal is the derived total shown in the read-only field, or empty
// while either operand is missing or invalid.
func previewTotal(quantity, basePrice string) string {
	qty, err := strconv.ParseInt(strings.TrimSpace(quantity), 10, 64)
	if err != nil {
		return ""
	}
	price, err := core.ParseAmount(basePrice)
	if err != nil {
		return ""
	}
	return core.FormatAmount(core.TotalPrice(qty, price))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
