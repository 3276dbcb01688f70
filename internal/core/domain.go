package core

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a bill date.
const DateLayout = "2006-01-02"

// AllProducts is the analysis filter value that matches every product.
const AllProducts = "all"

// Products is the fixed catalog offered by the bill form.
var Products = []string{
	"Kai Muruku",
	"Achu Muruku",
	"Kothu Muruku",
	"Adai",
	"Kambu Adai",
	"Podalaga Undai",
	"Adhurusam",
}

type (
	Date struct {
		time.Time
	}

	// Bill is a single sale line as stored and served by the API.
	Bill struct {
		ID           int64   `json:"id"`
		Date         Date    `json:"date"`
		CustomerName string  `json:"customer_name"`
		Product      string  `json:"product"`
		Quantity     int64   `json:"quantity"`
		BasePrice    float64 `json:"base_price"`
		TotalPrice   float64 `json:"total_price"`
	}

	// BillInput is the create/replace payload. TotalPrice is accepted on the
	// wire but always recomputed by Normalize.
	BillInput struct {
		Date         Date    `json:"date"`
		CustomerName string  `json:"customer_name"`
		Product      string  `json:"product"`
		Quantity     int64   `json:"quantity"`
		BasePrice    float64 `json:"base_price"`
		TotalPrice   float64 `json:"total_price,omitempty"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyCustomer    = errors.New("empty customer name")
	ErrUnknownProduct   = errors.New("unknown product")
	ErrInvalidQuantity  = errors.New("quantity must be a positive integer")
	ErrInvalidBasePrice = errors.New("base price must be a non-negative number")
	ErrSubCentPrice     = errors.New("base price must have at most two decimal places")
)

// ValidationError reports which field of a bill was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Before reports whether d falls on an earlier calendar day than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d falls on a later calendar day than o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: expected string", ErrInvalidDate)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsProduct reports whether name is part of the catalog.
func IsProduct(name string) bool {
	for _, p := range Products {
		if p == name {
			return true
		}
	}
	return false
}

// Normalize trims text fields and derives TotalPrice from quantity and base price.
func (in BillInput) Normalize() BillInput {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Product = strings.TrimSpace(in.Product)
	in.TotalPrice = TotalPrice(in.Quantity, in.BasePrice)
	return in
}

func (in BillInput) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		return &ValidationError{Field: "customer_name", Err: ErrEmptyCustomer}
	}
	if len(name) > 200 {
		return &ValidationError{Field: "customer_name", Err: errors.New("customer name too long (max 200 characters)")}
	}
	if !IsProduct(strings.TrimSpace(in.Product)) {
		return &ValidationError{Field: "product", Err: ErrUnknownProduct}
	}
	if in.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Err: ErrInvalidQuantity}
	}
	if in.BasePrice < 0 {
		return &ValidationError{Field: "base_price", Err: ErrInvalidBasePrice}
	}
	if !IsWholeCents(in.BasePrice) {
		return &ValidationError{Field: "base_price", Err: ErrSubCentPrice}
	}
	return nil
}

// Input returns the bill's fields without its id.
func (b Bill) Input() BillInput {
	return BillInput{
		Date:         b.Date,
		CustomerName: b.CustomerName,
		Product:      b.Product,
		Quantity:     b.Quantity,
		BasePrice:    b.BasePrice,
		TotalPrice:   b.TotalPrice,
	}
}

// WithID attaches a store-assigned id to the input.
func (in BillInput) WithID(id int64) Bill {
	return Bill{
		ID:           id,
		Date:         in.Date,
		CustomerName: in.CustomerName,
		Product:      in.Product,
		Quantity:     in.Quantity,
		BasePrice:    in.BasePrice,
		TotalPrice:   in.TotalPrice,
	}
}

// SortNewestFirst orders bills by date descending, then id descending.
func SortNewestFirst(bills []Bill) {
	slices.SortFunc(bills, func(a, b Bill) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return -c
		}
		return -cmp.Compare(a.ID, b.ID)
	})
}
