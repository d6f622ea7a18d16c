package closing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"openinghours/internal/clock"
	"openinghours/internal/metrics"
	"openinghours/internal/model"
	"openinghours/internal/tz"

	"github.com/rs/zerolog"
)

// Store persists closing rules; rows are written independently.
type Store interface {
	ListClosingRules(ctx context.Context, premisesID int64) ([]model.ClosingRule, error)
	UpsertClosingRule(ctx context.Context, r *model.ClosingRule) error
	DeleteClosingRule(ctx context.Context, premisesID, id int64) error
}

// Invalidator drops derived copies of a premises' schedule after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, premisesID int64) error
}

// RuleInput is one submitted edit row. ID is zero for new rows.
type RuleInput struct {
	ID        int64  `json:"id,omitempty"`
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`
	EndDate   string `json:"end_date"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

// Blank reports an untouched extra row.
func (in RuleInput) Blank() bool {
	return in.ID == 0 &&
		strings.TrimSpace(in.StartDate) == "" &&
		strings.TrimSpace(in.StartTime) == "" &&
		strings.TrimSpace(in.EndDate) == "" &&
		strings.TrimSpace(in.EndTime) == "" &&
		strings.TrimSpace(in.Reason) == ""
}

type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
	Skipped Action = "skipped"
)

// RowResult is the outcome of one submitted row.
type RowResult struct {
	Index  int               `json:"index"`
	ID     int64             `json:"id,omitempty"`
	Action Action            `json:"action"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Service edits the closing rules of a premises.
type Service struct {
	store  Store
	codec  *clock.Codec
	cache  Invalidator
	logger *zerolog.Logger
}

func NewService(store Store, codec *clock.Codec, cache Invalidator, logger *zerolog.Logger) *Service {
	return &Service{store: store, codec: codec, cache: cache, logger: logger}
}

// Submit applies each row on its own. A valid row is inserted or updated.
// An invalid row that refers to a stored rule deletes that rule. Invalid
// or blank new rows change nothing. Store failures stop the batch.
func (s *Service) Submit(ctx context.Context, p *model.Premises, rows []RuleInput) (results []RowResult, err error) {
	loc, err := tz.Location(p.Timezone)
	if err != nil {
		return nil, err
	}

	changed := 0
	defer func() {
		if changed > 0 && s.cache != nil {
			if ierr := s.cache.Invalidate(ctx, p.ID); ierr != nil {
				s.logger.Error().Err(ierr).Int64("premises_id", p.ID).Msg("Failed to invalidate schedule cache")
			}
		}
	}()

	results = make([]RowResult, 0, len(rows))
	for i, in := range rows {
		res := RowResult{Index: i, ID: in.ID, Action: Skipped}

		if in.Blank() {
			results = append(results, res)
			continue
		}

		rule, errs := s.build(p.ID, in, loc)
		switch {
		case len(errs) > 0 && in.ID != 0:
			if err := s.store.DeleteClosingRule(ctx, p.ID, in.ID); err != nil {
				return results, fmt.Errorf("row %d: %w", i, err)
			}
			res.Action = Deleted
			res.Errors = errs
			changed++
			s.logger.Info().Int64("premises_id", p.ID).Int64("rule_id", in.ID).Msg("Invalid closing rule edit removed the rule")
		case len(errs) > 0:
			res.Errors = errs
		default:
			if err := s.store.UpsertClosingRule(ctx, rule); err != nil {
				return results, fmt.Errorf("row %d: %w", i, err)
			}
			res.ID = rule.ID
			res.Action = Created
			if in.ID != 0 {
				res.Action = Updated
			}
			changed++
		}

		metrics.IncClosingRuleRow(string(res.Action))
		results = append(results, res)
	}

	return results, nil
}

func (s *Service) build(premisesID int64, in RuleInput, loc *time.Location) (*model.ClosingRule, map[string]string) {
	errs := make(map[string]string)

	start, field, err := buildIn(s.codec, in.StartDate, in.StartTime, loc)
	if err != nil {
		errs["start_"+field] = err.Error()
	}
	end, field, err := buildIn(s.codec, in.EndDate, in.EndTime, loc)
	if err != nil {
		errs["end_"+field] = err.Error()
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &model.ClosingRule{
		ID:         in.ID,
		PremisesID: premisesID,
		Start:      start,
		End:        end,
		Reason:     strings.TrimSpace(in.Reason),
	}, nil
}

// Rows returns the stored rules as editable local text followed by blank
// extra rows: three when nothing is stored yet, otherwise two.
func (s *Service) Rows(ctx context.Context, p *model.Premises) ([]RuleInput, error) {
	if _, err := tz.Location(p.Timezone); err != nil {
		return nil, err
	}
	rules, err := s.store.ListClosingRules(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	extra := 2
	if len(rules) == 0 {
		extra = 3
	}

	out := make([]RuleInput, 0, len(rules)+extra)
	for _, r := range rules {
		start, err := tz.ToLocal(r.Start, p.Timezone)
		if err != nil {
			return nil, err
		}
		end, err := tz.ToLocal(r.End, p.Timezone)
		if err != nil {
			return nil, err
		}
		out = append(out, RuleInput{
			ID:        r.ID,
			StartDate: start.Date.String(),
			StartTime: s.codec.Text(start.Time),
			EndDate:   end.Date.String(),
			EndTime:   s.codec.Text(end.Time),
			Reason:    r.Reason,
		})
	}
	for i := 0; i < extra; i++ {
		out = append(out, RuleInput{})
	}
	return out, nil
}

// List returns the stored rules ordered by start.
func (s *Service) List(ctx context.Context, premisesID int64) ([]model.ClosingRule, error) {
	return s.store.ListClosingRules(ctx, premisesID)
}
