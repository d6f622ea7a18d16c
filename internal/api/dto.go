package api

import (
	"openinghours/internal/clock"
	"openinghours/internal/closing"
	"openinghours/internal/model"
	"openinghours/internal/slots"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct checks request shape; field semantics are left to the domain services.
func ValidateStruct(s any) error {
	return validate.Struct(s)
}

// SaveHoursRequest is the body of PUT /api/premises/{slug}/hours.
type SaveHoursRequest struct {
	Slots []SlotRequest `json:"slots" validate:"max=14,dive"`
}

type SlotRequest struct {
	Weekday int    `json:"weekday"`
	Slot    int    `json:"slot"`
	Opens   string `json:"opens" validate:"max=16"`
	Shuts   string `json:"shuts" validate:"max=16"`
}

func (req SaveHoursRequest) inputs() []slots.SlotInput {
	out := make([]slots.SlotInput, len(req.Slots))
	for i, s := range req.Slots {
		out[i] = slots.SlotInput{Weekday: s.Weekday, Slot: s.Slot, Opens: s.Opens, Shuts: s.Shuts}
	}
	return out
}

// ClosingRulesRequest is the body of POST /api/premises/{slug}/closing-rules.
type ClosingRulesRequest struct {
	Rules []RuleRequest `json:"rules" validate:"max=100,dive"`
}

type RuleRequest struct {
	ID        int64  `json:"id,omitempty" validate:"gte=0"`
	StartDate string `json:"start_date" validate:"max=10"`
	StartTime string `json:"start_time" validate:"max=16"`
	EndDate   string `json:"end_date" validate:"max=10"`
	EndTime   string `json:"end_time" validate:"max=16"`
	Reason    string `json:"reason" validate:"max=255"`
}

func (req ClosingRulesRequest) inputs() []closing.RuleInput {
	out := make([]closing.RuleInput, len(req.Rules))
	for i, r := range req.Rules {
		out[i] = closing.RuleInput(r)
	}
	return out
}

// HoursResponse is everything the editor needs to render.
type HoursResponse struct {
	Premises     *model.Premises     `json:"premises"`
	TimeFormat   int                 `json:"time_format"`
	Choices      []clock.Choice      `json:"choices"`
	Week         slots.WeekView      `json:"week"`
	ClosingRules []closing.RuleInput `json:"closing_rules"`
}

type ClosingRulesResponse struct {
	Results []closing.RowResult `json:"results"`
}
