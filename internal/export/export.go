// Package export renders a premises' hours and closing rules as an Excel workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"openinghours/internal/cache"
	"openinghours/internal/clock"
	"openinghours/internal/tz"
)

// ScheduleSource loads the schedule of one premises.
type ScheduleSource interface {
	Schedule(ctx context.Context, premisesID int64) (*cache.Schedule, error)
}

// Exporter writes workbooks with times in the display format and rules in
// the premises' local time.
type Exporter struct {
	source    ScheduleSource
	codec     *clock.Codec
	newWriter func() ExcelWriter
}

func NewExporter(source ScheduleSource, codec *clock.Codec, newWriter func() ExcelWriter) *Exporter {
	if newWriter == nil {
		newWriter = NewExcelizeWriter
	}
	return &Exporter{source: source, codec: codec, newWriter: newWriter}
}

// Filename returns e.g. "acme_hours_2026-10-17.xlsx".
func Filename(slug string, now time.Time) string {
	return fmt.Sprintf("%s_hours_%s.xlsx", slug, now.Format("2006-01-02"))
}

// Export writes the workbook of a premises to w.
func (e *Exporter) Export(ctx context.Context, premisesID int64, w io.Writer) error {
	s, err := e.source.Schedule(ctx, premisesID)
	if err != nil {
		return err
	}
	tzID := s.Premises.Timezone

	excel := e.newWriter()
	defer excel.Close()

	if err := excel.AddSheet("Opening hours"); err != nil {
		return err
	}
	if err := excel.WriteHeader([]string{"Weekday", "Opens", "Shuts"}); err != nil {
		return err
	}
	for _, h := range s.Hours {
		if err := excel.WriteRow([]any{h.Weekday.Name(), e.codec.Text(h.Opens), e.codec.Text(h.Shuts)}); err != nil {
			return fmt.Errorf("write hours row: %w", err)
		}
	}

	if err := excel.AddSheet("Closing rules"); err != nil {
		return err
	}
	if err := excel.WriteHeader([]string{"Start date", "Start time", "End date", "End time", "Reason", "Timezone"}); err != nil {
		return err
	}
	for _, r := range s.Rules {
		start, err := tz.ToLocal(r.Start, tzID)
		if err != nil {
			return err
		}
		end, err := tz.ToLocal(r.End, tzID)
		if err != nil {
			return err
		}
		row := []any{
			start.Date.String(), e.codec.Text(start.Time),
			end.Date.String(), e.codec.Text(end.Time),
			r.Reason, tzID,
		}
		if err := excel.WriteRow(row); err != nil {
			return fmt.Errorf("write closing rule row: %w", err)
		}
	}

	return excel.Save(w)
}
