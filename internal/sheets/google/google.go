package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"billbook/internal/core"
	"billbook/internal/log"
	ports "billbook/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// lastColumn is the column of the final Header cell.
const lastColumn = "G"

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors bills into one sheet of a spreadsheet. Column A holds the
// bill id and is the only key used to find rows.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Rows are located by reading column A first, so mutations are
	// serialised to keep row numbers stable between the read and the write.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var (
	_ ports.BillMirror = (*Client)(nil)
	_ ports.BillReader = (*Client)(nil)
)

// NewFromConfig builds a client authenticated with service account
// credentials, inline JSON taking precedence over the file.
func NewFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	credentialsJSON, err := readCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger(ctx).InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	return New(ctx, cfg.SpreadsheetID, cfg.SheetName,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// New builds a client from raw client options.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Bills"
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func readCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger(ctx).InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		logger(ctx).InfoContext(ctx, "Reading credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// EnsureHeader writes the header into row 1 unless it is already there.
func (c *Client) EnsureHeader(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureHeaderLocked(ctx)
}

func (c *Client) ensureHeaderLocked(ctx context.Context) error {
	rng := c.a1("A1:" + lastColumn + "1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	if len(resp.Values) > 0 && ports.IsHeader(resp.Values[0]) {
		return nil
	}

	header := make([]interface{}, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	if err := c.write(ctx, rng, [][]interface{}{header}); err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheetName, err)
	}
	logger(ctx).InfoContext(ctx, "Wrote bill sheet header", "sheet", c.sheetName)
	return nil
}

// Upsert overwrites the row carrying b.ID, or writes b below the last row.
func (c *Client) Upsert(ctx context.Context, b core.Bill) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row, found := findRow(ids, b.ID)
	if !found {
		row = len(ids) + 1
	}

	rng := c.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
	if err := c.write(ctx, rng, [][]interface{}{ports.Row(b)}); err != nil {
		return fmt.Errorf("write bill %d to %s: %w", b.ID, c.sheetName, err)
	}

	logger(ctx).InfoContext(ctx, "Mirrored bill to sheet", "id", b.ID, "row", row, "appended", !found)
	return nil
}

// Remove deletes the row carrying id. A missing row is not an error.
func (c *Client) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row, found := findRow(ids, id)
	if !found {
		logger(ctx).DebugContext(ctx, "Bill not present in sheet", "id", id)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// Zero is a valid sheet id and row index.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", row, c.sheetName, err)
	}

	logger(ctx).InfoContext(ctx, "Removed bill from sheet", "id", id, "row", row)
	return nil
}

// ReplaceAll clears every data row and writes bills in the given order.
func (c *Client) ReplaceAll(ctx context.Context, bills []core.Bill) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureHeaderLocked(ctx); err != nil {
		return err
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.a1("A2:"+lastColumn), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", c.sheetName, err)
	}
	if len(bills) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(bills))
	for i, b := range bills {
		rows[i] = ports.Row(b)
	}
	rng := c.a1(fmt.Sprintf("A2:%s%d", lastColumn, len(bills)+1))
	if err := c.write(ctx, rng, rows); err != nil {
		return fmt.Errorf("write bills to %s: %w", c.sheetName, err)
	}

	logger(ctx).InfoContext(ctx, "Rewrote bill sheet", "sheet", c.sheetName, "rows", len(bills))
	return nil
}

// List reads back every bill row. Rows that do not parse are skipped.
func (c *Client) List(ctx context.Context) ([]core.Bill, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:"+lastColumn)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.sheetName, err)
	}

	out := make([]core.Bill, 0, len(resp.Values))
	for i, row := range resp.Values {
		if _, ok := ports.RowID(row); !ok {
			continue
		}
		b, err := ports.ParseRow(row)
		if err != nil {
			logger(ctx).WarnContext(ctx, "Skipping unreadable sheet row", "row", i+1, "error", err)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// readIDs returns column A, one entry per sheet row.
func (c *Client) readIDs(ctx context.Context) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids of %s: %w", c.sheetName, err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, rng string, rows [][]interface{}) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

func (c *Client) a1(rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), rng)
}

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentSheets)
}

// findRow returns the 1-based sheet row whose column A equals id.
func findRow(ids [][]interface{}, id int64) (int, bool) {
	for i, row := range ids {
		if got, ok := ports.RowID(row); ok && got == id {
			return i + 1, true
		}
	}
	return 0, false
}
