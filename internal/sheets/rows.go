package sheets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"billbook/internal/core"
)

// Header is the first row of a mirrored sheet. Column A always holds the id.
var Header = []string{"ID", "Date", "Customer Name", "Product", "Quantity", "Base Price", "Total Price"}

var ErrShortRow = errors.New("row has fewer cells than the header")

// Row converts a bill into sheet cells in Header order.
func Row(b core.Bill) []interface{} {
	return []interface{}{
		strconv.FormatInt(b.ID, 10),
		b.Date.String(),
		b.CustomerName,
		b.Product,
		strconv.FormatInt(b.Quantity, 10),
		amountCell(b.BasePrice),
		amountCell(b.TotalPrice),
	}
}

func parseAmountCell(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil || d.IsNegative() {
		return 0, core.ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// amountCell keeps two decimals for whole-cent values and every digit
// otherwise, so ParseRow gives back the stored amount.
func amountCell(v float64) string {
	if core.IsWholeCents(v) {
		return core.FormatAmount(v)
	}
	return decimal.NewFromFloat(v).String()
}

// ParseRow is the inverse of Row. Cells may come back from the API as
// strings or numbers depending on the value render option.
func ParseRow(row []interface{}) (core.Bill, error) {
	if len(row) < len(Header) {
		return core.Bill{}, ErrShortRow
	}
	cell := toStrings(row)

	id, err := strconv.ParseInt(cell[0], 10, 64)
	if err != nil {
		return core.Bill{}, fmt.Errorf("parse id %q: %w", cell[0], err)
	}
	date, err := core.ParseDate(cell[1])
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill %d: %w", id, err)
	}
	qty, err := strconv.ParseInt(cell[4], 10, 64)
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill %d: parse quantity %q: %w", id, cell[4], err)
	}
	base, err := parseAmountCell(cell[5])
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill %d: base price %q: %w", id, cell[5], err)
	}
	total, err := parseAmountCell(cell[6])
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill %d: total price %q: %w", id, cell[6], err)
	}

	return core.Bill{
		ID:           id,
		Date:         date,
		CustomerName: cell[2],
		Product:      cell[3],
		Quantity:     qty,
		BasePrice:    base,
		TotalPrice:   total,
	}, nil
}

// RowID returns the id in column A, or false for header, blank and
// non-numeric rows.
func RowID(row []interface{}) (int64, bool) {
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IsHeader reports whether row matches Header cell for cell.
func IsHeader(row []interface{}) bool {
	if len(row) < len(Header) {
		return false
	}
	for i, h := range Header {
		if strings.TrimSpace(fmt.Sprint(row[i])) != h {
			return false
		}
	}
	return true
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
