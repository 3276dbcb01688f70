// Package report renders the bill book as a PDF document.
package report

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	mcore "github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"billbook/internal/analysis"
	"billbook/internal/core"
)

const (
	Title       = "Bill Book Report"
	ContentType = "application/pdf"
	Filename    = "bill-book-report.pdf"

	// Currency replaces the rupee sign, which maroto's built-in fonts lack.
	Currency = "Rs. "
)

var header = []struct {
	label string
	size  int
	align align.Type
}{
	{"Date", 2, align.Left},
	{"Customer", 3, align.Left},
	{"Product", 3, align.Left},
	{"Quantity", 1, align.Right},
	{"Base Price", 1, align.Right},
	{"Total", 2, align.Right},
}

// TotalLine is the summary shown under the title.
func TotalLine(total float64) string {
	return "Current Month Total: " + Currency + core.FormatAmount(total)
}

// Build renders every bill, newest first, under a header carrying the
// running total of the calendar month of now. bills is not modified.
func Build(bills []core.Bill, now time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(15,
		text.NewCol(12, Title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)
	m.AddRow(10,
		text.NewCol(8, TotalLine(analysis.CurrentMonthTotal(bills, now)), props.Text{
			Size:  11,
			Style: fontstyle.Bold,
		}),
		text.NewCol(4, "Generated "+now.Format("02 Jan 2006 15:04"), props.Text{
			Size:  8,
			Align: align.Right,
		}),
	)

	headerCols := make([]mcore.Col, 0, len(header))
	for _, h := range header {
		headerCols = append(headerCols, text.NewCol(h.size, h.label, props.Text{
			Size:  9,
			Style: fontstyle.Bold,
			Align: h.align,
		}))
	}
	m.AddRow(8, headerCols...)
	m.AddRow(2, line.NewCol(12))

	sorted := slices.Clone(bills)
	core.SortNewestFirst(sorted)
	for _, b := range sorted {
		m.AddRow(7,
			text.NewCol(2, b.Date.String(), props.Text{Size: 9}),
			text.NewCol(3, b.CustomerName, props.Text{Size: 9}),
			text.NewCol(3, b.Product, props.Text{Size: 9}),
			text.NewCol(1, strconv.FormatInt(b.Quantity, 10), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(1, core.FormatAmount(b.BasePrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, core.FormatAmount(b.TotalPrice), props.Text{Size: 9, Align: align.Right}),
		)
	}
	if len(sorted) == 0 {
		m.AddRow(10, text.NewCol(12, "No bills recorded.", props.Text{Size: 9, Style: fontstyle.Italic, Top: 3}))
	}

	m.AddRow(10, col.New(12))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	return doc.GetBytes(), nil
}
