package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"basegraph.app/supportbot/internal/model"
)

const valueInputRaw = "RAW"

// ServiceFactory builds the Sheets client. Swapped out in tests.
type ServiceFactory func(ctx context.Context) (*sheets.Service, error)

// SheetsAppender appends rows to a fixed spreadsheet range. The Sheets client is
// built on first use and reused afterwards; a failed build is retried on the
// next append.
type SheetsAppender struct {
	spreadsheetID string
	writeRange    string
	newService    ServiceFactory

	mu  sync.Mutex
	svc *sheets.Service
}

func NewSheetsAppender(spreadsheetID, writeRange string, newService ServiceFactory) *SheetsAppender {
	return &SheetsAppender{
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
		newService:    newService,
	}
}

// CredentialsServiceFactory authenticates with a service-account key. The key is
// read through creds on every build so a rotated file is picked up after a failure.
func CredentialsServiceFactory(creds CredentialsSource, opts ...option.ClientOption) ServiceFactory {
	return func(ctx context.Context) (*sheets.Service, error) {
		key, err := creds.Load()
		if err != nil {
			return nil, err
		}

		all := append([]option.ClientOption{
			option.WithCredentialsJSON(key),
			option.WithScopes(sheets.SpreadsheetsScope),
		}, opts...)
		return sheets.NewService(ctx, all...)
	}
}

func (a *SheetsAppender) service(ctx context.Context) (*sheets.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.svc != nil {
		return a.svc, nil
	}

	svc, err := a.newService(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing sheets service: %w", err)
	}
	a.svc = svc
	return svc, nil
}

func (a *SheetsAppender) Append(ctx context.Context, rec model.FeedbackLogRecord) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	resp, err := svc.Spreadsheets.Values.Append(a.spreadsheetID, a.writeRange, &sheets.ValueRange{
		Values: [][]any{rec.Row()},
	}).ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending to sheet: %w", err)
	}

	var updated int64
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedCells
	}
	slog.InfoContext(ctx, "feedback appended to sheet", "updated_cells", updated)
	return nil
}
