package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/marketops/mopctl/internal/retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// GoogleClient implements Source and Sink against the Google Sheets API
// using service-account credentials.
type GoogleClient struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	retryCfg      retry.Config
	limiter       *rate.Limiter
	logger        *zap.Logger
}

var (
	_ Source = (*GoogleClient)(nil)
	_ Sink   = (*GoogleClient)(nil)
)

// GoogleConfig holds the settings for the Sheets API client.
type GoogleConfig struct {
	SpreadsheetID     string
	CredentialsFile   string
	RequestsPerMinute int
	Retry             retry.Config
}

// NewGoogleClient creates a Sheets API client. The per-minute limit
// defaults to 50, just under the service's per-user read quota.
func NewGoogleClient(ctx context.Context, cfg GoogleConfig, logger *zap.Logger) (*GoogleClient, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 50
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)

	return &GoogleClient{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		retryCfg:      cfg.Retry,
		limiter:       limiter,
		logger:        logger,
	}, nil
}

// ListWorksheets implements Source.
func (c *GoogleClient) ListWorksheets(ctx context.Context) ([]string, error) {
	var titles []string
	err := c.call(ctx, "sheets.list", func(ctx context.Context) error {
		ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return err
		}
		titles = titles[:0]
		for _, s := range ss.Sheets {
			titles = append(titles, s.Properties.Title)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return titles, nil
}

// ReadTable implements Source. The first row becomes the header; an empty
// worksheet yields an empty table.
func (c *GoogleClient) ReadTable(ctx context.Context, name string) (*Table, error) {
	var values [][]interface{}
	err := c.call(ctx, "sheets.read", func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, name).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = resp.Values
		return nil
	})
	if err != nil {
		return nil, err
	}

	t := &Table{Name: name}
	if len(values) == 0 {
		return t, nil
	}
	t.Header = toStrings(values[0])
	for _, row := range values[1:] {
		t.Rows = append(t.Rows, toStrings(row))
	}
	c.logger.Info("read worksheet",
		zap.String("worksheet", name),
		zap.Int("rows", len(t.Rows)))
	return t, nil
}

// WriteTable implements Sink. An existing worksheet is cleared first; a
// missing one is created. The clear-then-update sequence means a fatal
// failure before update leaves the destination empty rather than half
// written.
func (c *GoogleClient) WriteTable(ctx context.Context, t *Table) error {
	exists, err := c.worksheetExists(ctx, t.Name)
	if err != nil {
		return err
	}

	if exists {
		err = c.call(ctx, "sheets.clear", func(ctx context.Context) error {
			_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, t.Name, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
			return err
		})
	} else {
		err = c.call(ctx, "sheets.addSheet", func(ctx context.Context) error {
			_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
				Requests: []*sheetsapi.Request{{
					AddSheet: &sheetsapi.AddSheetRequest{
						Properties: &sheetsapi.SheetProperties{Title: t.Name},
					},
				}},
			}).Context(ctx).Do()
			return err
		})
	}
	if err != nil {
		return err
	}

	values := make([][]interface{}, 0, len(t.Rows)+1)
	values = append(values, toInterfaces(t.Header))
	for _, row := range t.Rows {
		values = append(values, toInterfaces(row))
	}

	err = c.call(ctx, "sheets.update", func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, t.Name, &sheetsapi.ValueRange{
			Values: values,
		}).ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}

	c.logger.Info("wrote worksheet",
		zap.String("worksheet", t.Name),
		zap.Int("rows", len(t.Rows)))
	return nil
}

// worksheetExists checks for a worksheet by title.
func (c *GoogleClient) worksheetExists(ctx context.Context, name string) (bool, error) {
	titles, err := c.ListWorksheets(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range titles {
		if t == name {
			return true, nil
		}
	}
	return false, nil
}

// call runs one API request through the rate limiter and the retry
// wrapper, classifying Google API status codes so only transient failures
// are retried.
func (c *GoogleClient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return retry.Do(ctx, c.retryCfg, c.logger, op, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return classify(fn(ctx))
	})
}

// classify marks retryable Google API errors as transient. Rate limits and
// server errors retry; permission and not-found failures propagate.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return retry.Transient(err)
		}
		return err
	}
	// Cancellation is not a service failure; let it propagate as-is.
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Anything else from the transport is a network failure.
	return retry.Transient(err)
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
