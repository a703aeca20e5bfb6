// Package report exports booking proposals to an Excel workbook for the
// venue admins.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"venuebook/internal/models"

	"github.com/rs/zerolog"
)

const (
	SheetName  = "proposals"
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04"
)

var Columns = []string{
	"Booking #",
	"Client",
	"Venue",
	"Booking status",
	"Slot 1",
	"Slot 2",
	"Validated slot",
	"Phase",
	"Expires at",
	"Admin notified at",
	"Created at",
}

// Source lists proposals created in [from, to).
type Source interface {
	ListProposals(ctx context.Context, from, to time.Time) ([]models.ProposalRow, error)
}

type Exporter struct {
	source    Source
	newWriter func() ExcelWriter
	logger    zerolog.Logger
	now       func() time.Time
}

func NewExporter(source Source, writerFactory func() ExcelWriter, logger *zerolog.Logger) *Exporter {
	if writerFactory == nil {
		writerFactory = NewExcelizeWriter
	}
	return &Exporter{
		source:    source,
		newWriter: writerFactory,
		logger:    logger.With().Str("component", "report").Logger(),
		now:       time.Now,
	}
}

// Export writes the proposals created between from and to into a workbook at
// path and returns the number of rows written.
func (e *Exporter) Export(ctx context.Context, from, to time.Time, path string) (int, error) {
	if !to.After(from) {
		return 0, fmt.Errorf("empty range: %s to %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	rows, err := e.source.ListProposals(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list proposals: %w", err)
	}

	w := e.newWriter()
	defer func() { _ = w.Close() }()

	if err := w.AddSheet(SheetName); err != nil {
		return 0, err
	}
	if err := w.WriteHeader(Columns); err != nil {
		return 0, err
	}

	now := e.now()
	for i := range rows {
		if err := w.WriteRow(toRow(&rows[i], now)); err != nil {
			return 0, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	if err := w.SaveToFile(path); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}

	e.logger.Info().
		Str("path", path).
		Int("rows", len(rows)).
		Time("from", from).
		Time("to", to).
		Msg("proposals exported")

	return len(rows), nil
}

func toRow(r *models.ProposalRow, now time.Time) []any {
	slot2 := ""
	if r.HasSecond() {
		slot2 = r.Date2 + " " + r.Time2
	}
	validated := ""
	if r.ValidatedSlot != nil {
		validated = fmt.Sprintf("%d", *r.ValidatedSlot)
	}
	notified := ""
	if r.AdminNotifiedAt != nil {
		notified = r.AdminNotifiedAt.UTC().Format(timeLayout)
	}

	return []any{
		r.BookingNumber,
		r.ClientName,
		r.VenueName,
		string(r.BookingStatus),
		r.Date1 + " " + r.Time1,
		slot2,
		validated,
		string(r.Phase(now)),
		r.ExpiresAt.UTC().Format(timeLayout),
		notified,
		r.CreatedAt.UTC().Format(timeLayout),
	}
}

// GenerateFilename names a report like "proposals_2026-03-01_2026-04-01.xlsx".
func GenerateFilename(from, to time.Time) string {
	return fmt.Sprintf("proposals_%s_%s.xlsx", from.Format(dateLayout), to.Format(dateLayout))
}
