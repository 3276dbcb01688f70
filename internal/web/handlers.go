package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"billbook/internal/analysis"
	"billbook/internal/client"
	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/report"
)

// layout is the data every page shares with layout.html.
type layout struct {
	Active     string
	MonthTotal string
	Error      string
}

type billRow struct {
	ID         int64
	Date       string
	Customer   string
	Product    string
	Quantity   int64
	BasePrice  string
	TotalPrice string
}

type billsPage struct {
	layout
	Form     BillForm
	Products []string
	Bills    []billRow
}

type analysisPage struct {
	layout
	Start      string
	End        string
	Product    string
	Products   []string
	Matched    int
	Daily      []Chart
	Comparison Chart
	Months     []analysis.MonthTotal
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/bills", http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleBills renders the idle form, or the editing form when ?edit=id names
// an existing bill.
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.listBills(r.Context())
	page := s.newBillsPage(bills)
	if err != nil {
		s.logFailure(r, log.OpList, "Failed to fetch bills", err)
		page.Error = "Could not load bills from the API."
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("edit")); raw != "" && err == nil {
		id, perr := strconv.ParseInt(raw, 10, 64)
		found := false
		for _, b := range bills {
			if perr == nil && b.ID == id {
				page.Form = formFromBill(b)
				found = true
				break
			}
		}
		if !found {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Edit requested for unknown bill", log.FieldBillID, raw)
			page.Error = "Bill " + raw + " not found."
		}
	}

	s.render(w, r, http.StatusOK, "bills.html", page)
}

// handleSubmitBill creates a bill, or updates one when the form carries an
// id. Success returns to the idle view; failure re-renders the submitted
// values.
func (s *Server) handleSubmitBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.logFailure(r, log.OpParse, "Invalid form submission", err)
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	form := formFromValues(r.PostForm)
	op := log.OpCreate
	if form.Editing() {
		op = log.OpUpdate
	}

	id, in, err := form.Input()
	if err == nil {
		if form.Editing() {
			err = s.api.Update(r.Context(), id, in)
		} else {
			id, err = s.api.Create(r.Context(), in)
		}
	}
	if err != nil {
		s.logFailure(r, op, "Failed to save bill", err)
		bills, lerr := s.listBills(r.Context())
		if lerr != nil {
			s.logFailure(r, log.OpList, "Failed to fetch bills", lerr)
		}
		page := s.newBillsPage(bills)
		page.Form = form
		page.Error = userMessage(err)
		s.render(w, r, failureStatus(err), "bills.html", page)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentBill).InfoContext(r.Context(), "Bill saved",
		log.NewFields().WithOperation(op).WithBill(id, in.Date.String(), in.CustomerName, in.Product, in.Quantity, in.TotalPrice).ToSlice()...)
	http.Redirect(w, r, "/bills", http.StatusSeeOther)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid bill id", http.StatusBadRequest)
		return
	}

	if err := s.api.Delete(r.Context(), id); err != nil {
		s.logFailure(r, log.OpDelete, "Failed to delete bill", err)
		bills, lerr := s.listBills(r.Context())
		if lerr != nil {
			s.logFailure(r, log.OpList, "Failed to fetch bills", lerr)
		}
		page := s.newBillsPage(bills)
		page.Error = userMessage(err)
		s.render(w, r, failureStatus(err), "bills.html", page)
		return
	}
	http.Redirect(w, r, "/bills", http.StatusSeeOther)
}

// handleTotalPreview returns the read-only total field for htmx swaps.
func (s *Server) handleTotalPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := struct{ TotalPrice string }{previewTotal(q.Get("quantity"), q.Get("base_price"))}

	var buf bytes.Buffer
	if err := s.partials.ExecuteTemplate(&buf, "total_field", data); err != nil {
		s.logFailure(r, log.OpRender, "Template execution failed", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	filter, ferr := parseFilter(r, analysis.DefaultFilter(now))

	bills, err := s.listBills(r.Context())
	page := analysisPage{
		layout: layout{
			Active:     "analysis",
			MonthTotal: core.FormatCurrency(analysis.CurrentMonthTotal(bills, now)),
		},
		Start:    filter.Start.String(),
		End:      filter.End.String(),
		Product:  filter.Product,
		Products: append([]string{core.AllProducts}, core.Products...),
	}
	switch {
	case err != nil:
		s.logFailure(r, log.OpList, "Failed to fetch bills", err)
		page.Error = "Could not load bills from the API."
	case ferr != nil:
		page.Error = ferr.Error()
	}

	result := analysis.Analyze(bills, filter, now)
	page.Matched = result.Matched
	page.Months = result.Comparison
	page.Daily, page.Comparison = s.charts(r, result)

	s.render(w, r, http.StatusOK, "analysis.html", page)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	bills, err := s.listBills(r.Context())
	if err != nil {
		s.logFailure(r, log.OpExport, "Failed to fetch bills", err)
		http.Error(w, "could not load bills", http.StatusBadGateway)
		return
	}

	pdf, err := report.Build(bills, s.now())
	if err != nil {
		s.logFailure(r, log.OpExport, "Failed to build report", err)
		http.Error(w, "could not build report", http.StatusInternalServerError)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentReport).InfoContext(r.Context(), "Report exported",
		"bills", len(bills), "bytes", len(pdf))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

func (s *Server) newBillsPage(bills []core.Bill) billsPage {
	now := s.now()
	sorted := make([]core.Bill, len(bills))
	copy(sorted, bills)
	core.SortNewestFirst(sorted)

	rows := make([]billRow, 0, len(sorted))
	for _, b := range sorted {
		rows = append(rows, billRow{
			ID:         b.ID,
			Date:       b.Date.String(),
			Customer:   b.CustomerName,
			Product:    b.Product,
			Quantity:   b.Quantity,
			BasePrice:  core.FormatAmount(b.BasePrice),
			TotalPrice: core.FormatAmount(b.TotalPrice),
		})
	}

	return billsPage{
		layout: layout{
			Active:     "bills",
			MonthTotal: core.FormatCurrency(analysis.CurrentMonthTotal(bills, now)),
		},
		Form:     emptyForm(now),
		Products: core.Products,
		Bills:    rows,
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logFailure(r, log.OpRender, "Template execution failed", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) logFailure(r *http.Request, op, msg string, err error) {
	errType := log.ErrorTypeInternal
	var verr *core.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &verr):
		errType = log.ErrorTypeValidation
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusUnprocessableEntity {
			errType = log.ErrorTypeValidation
		}
		if apiErr.StatusCode == http.StatusNotFound {
			errType = log.ErrorTypeNotFound
		}
	default:
		errType = log.ErrorTypeNetwork
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), msg,
		log.NewFields().WithOperation(op).WithError(err, errType).ToSlice()...)
}

// userMessage is the error text shown above the form.
func userMessage(err error) string {
	var verr *core.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &verr):
		return "Invalid " + strings.ReplaceAll(verr.Field, "_", " ") + ": " + verr.Err.Error()
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return apiErr.Message
	default:
		return "The bill could not be saved. Please try again."
	}
}

func failureStatus(err error) int {
	var verr *core.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

// parseFilter reads start, end and product from the query. Invalid values
// fall back to def and are reported.
func parseFilter(r *http.Request, def analysis.Filter) (analysis.Filter, error) {
	q := r.URL.Query()
	f := def
	var problems []string

	if v := strings.TrimSpace(q.Get("start")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.Start = d
		} else {
			problems = append(problems, "invalid start date")
		}
	}
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.End = d
		} else {
			problems = append(problems, "invalid end date")
		}
	}
	if v := strings.TrimSpace(q.Get("product")); v != "" {
		if v == core.AllProducts || core.IsProduct(v) {
			f.Product = v
		} else {
			problems = append(problems, "unknown product")
		}
	}

	if len(problems) > 0 {
		return f, errors.New(strings.Join(problems, ", "))
	}
	return f, nil
}

// charts renders the daily total, daily quantity and month comparison bar
// charts. A chart that fails to render is logged and shown as empty.
func (s *Server) charts(r *http.Request, result analysis.Result) ([]Chart, Chart) {
	labels := make([]string, len(result.Daily))
	totals := make([]float64, len(result.Daily))
	quantities := make([]float64, len(result.Daily))
	for i, p := range result.Daily {
		labels[i] = p.Date.Format("02 Jan")
		totals[i] = p.Total
		quantities[i] = float64(p.Quantity)
	}
	months := make([]string, len(result.Comparison))
	monthTotals := make([]float64, len(result.Comparison))
	for i, m := range result.Comparison {
		months[i] = m.Month
		monthTotals[i] = m.Total
	}

	render := func(title, class string, labels []string, values []float64, color drawing.Color) Chart {
		c, err := renderBarChart(title, labels, values, color)
		if err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentWeb).ErrorContext(r.Context(), "Failed to render chart",
				log.NewFields().WithOperation(log.OpRender).WithError(err, log.ErrorTypeInternal).ToSlice()...)
			c = Chart{Title: title, Empty: true}
		}
		c.Class = class
		return c
	}

	daily := []Chart{
		render("Total Sales", "bar-total", labels, totals, colorTotal),
		render("Quantity", "bar-quantity", labels, quantities, colorQuantity),
	}
	return daily, render("Total Sales", "bar-total", months, monthTotals, colorTotal)
}
