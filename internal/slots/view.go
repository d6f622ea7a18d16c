// Package slots maps a premises' stored opening hours onto a bounded
// two-slots-per-weekday editing view and writes a submitted view back.
package slots

import (
	"fmt"

	"openinghours/internal/clock"
	"openinghours/internal/model"
)

// PerDay is the number of slots the editor shows for each weekday.
const PerDay = 2

// SlotView is one editable interval rendered in the display format.
type SlotView struct {
	Prefix string `json:"prefix"`
	Opens  string `json:"opens"`
	Shuts  string `json:"shuts"`
}

// DayView is the editor state of a weekday: Closed with no slots, or open
// with Slot1 set and Slot2 optionally set.
type DayView struct {
	Weekday model.Weekday `json:"weekday"`
	Name    string        `json:"name"`
	Closed  bool          `json:"closed"`
	Slot1   *SlotView     `json:"slot1,omitempty"`
	Slot2   *SlotView     `json:"slot2,omitempty"`
	// Hidden counts stored intervals the editor cannot show. They are kept
	// until the next save replaces the week.
	Hidden int `json:"hidden,omitempty"`
}

// WeekView is the seven days Monday first.
type WeekView struct {
	Days []DayView `json:"days"`
	// TwoSets is set when any day uses its second slot.
	TwoSets bool `json:"two_sets"`
}

// Prefix names the form fields of one slot, e.g. "day1_2" for Monday's second slot.
func Prefix(day model.Weekday, slot int) string {
	return fmt.Sprintf("day%d_%d", int(day), slot)
}

// BuildWeekView groups hours by weekday keeping their order within a day.
func BuildWeekView(codec *clock.Codec, hours []model.OpeningHours) WeekView {
	byDay := make(map[model.Weekday][]model.OpeningHours, 7)
	for _, h := range hours {
		byDay[h.Weekday] = append(byDay[h.Weekday], h)
	}

	view := WeekView{Days: make([]DayView, 0, 7)}
	for _, day := range model.AllWeekdays() {
		rows := byDay[day]
		dv := DayView{Weekday: day, Name: day.Name(), Closed: len(rows) == 0}

		for i, h := range rows {
			if i >= PerDay {
				dv.Hidden++
				continue
			}
			sv := &SlotView{
				Prefix: Prefix(day, i+1),
				Opens:  codec.Text(h.Opens),
				Shuts:  codec.Text(h.Shuts),
			}
			if i == 0 {
				dv.Slot1 = sv
			} else {
				dv.Slot2 = sv
				view.TwoSets = true
			}
		}
		view.Days = append(view.Days, dv)
	}
	return view
}

// Inputs converts a view back into the submission that would reproduce it.
func (w WeekView) Inputs() []SlotInput {
	var out []SlotInput
	for _, d := range w.Days {
		for i, sv := range []*SlotView{d.Slot1, d.Slot2} {
			if sv == nil {
				continue
			}
			out = append(out, SlotInput{Weekday: int(d.Weekday), Slot: i + 1, Opens: sv.Opens, Shuts: sv.Shuts})
		}
	}
	return out
}
