package config

import (
	"fmt"
	"os"
	"time"

	"openinghours/internal/tz"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

// PremisesConfig represents a single premises.
type PremisesConfig struct {
	ID           int          `yaml:"id"`
	Slug         string       `yaml:"slug"`
	Name         string       `yaml:"name"`
	Timezone     string       `yaml:"timezone"`
	IsActive     bool         `yaml:"is_active"`
	DefaultHours *HoursConfig `yaml:"default_hours,omitempty"`
}

// HoursConfig seeds weekly hours for premises that have none stored yet.
// A break splits each open day into two slots.
type HoursConfig struct {
	Opens      string `yaml:"opens"`                 // "09:00"
	Shuts      string `yaml:"shuts"`                 // "18:00"
	BreakStart string `yaml:"break_start,omitempty"` // "12:00"
	BreakEnd   string `yaml:"break_end,omitempty"`   // "13:00"
	DaysOff    []int  `yaml:"days_off"`              // 1=Mon, 7=Sun
}

// HolidayConfig seeds one full-local-day closing rule per premises the first
// time the date appears. After that the rule is an ordinary closing rule;
// nothing recurs and removing the entry does not remove the rule.
type HolidayConfig struct {
	Date string `yaml:"date"` // "2026-12-25"
	Name string `yaml:"name"`
}

type DefaultsConfig struct {
	Timezone string       `yaml:"timezone"`
	Hours    *HoursConfig `yaml:"hours"`
}

// PremisesCatalog is the root configuration for premises.yaml.
type PremisesCatalog struct {
	Premises []PremisesConfig `yaml:"premises"`
	Defaults DefaultsConfig   `yaml:"defaults"`
	Holidays []HolidayConfig  `yaml:"holidays"`
}

// LoadPremisesCatalog loads and validates premises configuration from YAML file.
func LoadPremisesCatalog(path string) (*PremisesCatalog, error) {
	if path == "" {
		path = "configs/premises.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read premises config: %w", err)
	}

	return ParsePremisesCatalog(data)
}

// ParsePremisesCatalog decodes, defaults and validates a catalogue.
func ParsePremisesCatalog(data []byte) (*PremisesCatalog, error) {
	var cfg PremisesCatalog
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse premises config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate premises config: %w", err)
	}
	return &cfg, nil
}

func (c *PremisesCatalog) applyDefaults() {
	for i := range c.Premises {
		p := &c.Premises[i]
		if p.Timezone == "" {
			p.Timezone = c.Defaults.Timezone
		}
		if p.Slug == "" && p.Name != "" {
			p.Slug = slug.Make(p.Name)
		}
		if p.DefaultHours == nil && c.Defaults.Hours != nil {
			p.DefaultHours = c.Defaults.Hours
		}
	}
}

// Validate checks the configuration for errors.
func (c *PremisesCatalog) Validate() error {
	if len(c.Premises) == 0 {
		return fmt.Errorf("no premises defined")
	}

	ids := make(map[int]bool)
	slugs := make(map[string]bool)

	for i, p := range c.Premises {
		if p.ID <= 0 {
			return fmt.Errorf("premises[%d]: id must be positive, got %d", i, p.ID)
		}
		if ids[p.ID] {
			return fmt.Errorf("premises[%d]: duplicate id %d", i, p.ID)
		}
		ids[p.ID] = true

		if p.Name == "" {
			return fmt.Errorf("premises[%d]: name is required", i)
		}
		if !slug.IsSlug(p.Slug) {
			return fmt.Errorf("premises[%d]: invalid slug '%s'", i, p.Slug)
		}
		if slugs[p.Slug] {
			return fmt.Errorf("premises[%d]: duplicate slug '%s'", i, p.Slug)
		}
		slugs[p.Slug] = true

		if _, err := tz.Location(p.Timezone); err != nil {
			return fmt.Errorf("premises[%d].timezone: %w", i, err)
		}

		if p.DefaultHours != nil {
			if err := validateHours(p.DefaultHours, fmt.Sprintf("premises[%d].default_hours", i)); err != nil {
				return err
			}
		}
	}

	if c.Defaults.Hours != nil {
		if err := validateHours(c.Defaults.Hours, "defaults.hours"); err != nil {
			return err
		}
	}

	for i, h := range c.Holidays {
		if h.Date == "" {
			return fmt.Errorf("holiday[%d]: date is required", i)
		}
		if _, err := tz.ParseDate(h.Date); err != nil {
			return fmt.Errorf("holiday[%d]: invalid date format '%s', expected YYYY-MM-DD", i, h.Date)
		}
	}

	return nil
}

// validateHours checks an hours block; config files always use 24-hour times.
func validateHours(h *HoursConfig, prefix string) error {
	if h.Opens == "" {
		return fmt.Errorf("%s.opens is required", prefix)
	}
	if h.Shuts == "" {
		return fmt.Errorf("%s.shuts is required", prefix)
	}

	opens, err := time.Parse("15:04", h.Opens)
	if err != nil {
		return fmt.Errorf("%s.opens: invalid format '%s', expected HH:MM", prefix, h.Opens)
	}
	shuts, err := time.Parse("15:04", h.Shuts)
	if err != nil {
		return fmt.Errorf("%s.shuts: invalid format '%s', expected HH:MM", prefix, h.Shuts)
	}
	if !shuts.After(opens) {
		return fmt.Errorf("%s: shuts must be after opens", prefix)
	}

	if (h.BreakStart == "") != (h.BreakEnd == "") {
		return fmt.Errorf("%s: break_start and break_end must be set together", prefix)
	}
	if h.BreakStart != "" {
		breakStart, err := time.Parse("15:04", h.BreakStart)
		if err != nil {
			return fmt.Errorf("%s.break_start: invalid format '%s', expected HH:MM", prefix, h.BreakStart)
		}
		breakEnd, err := time.Parse("15:04", h.BreakEnd)
		if err != nil {
			return fmt.Errorf("%s.break_end: invalid format '%s', expected HH:MM", prefix, h.BreakEnd)
		}
		if !breakEnd.After(breakStart) {
			return fmt.Errorf("%s: break_end must be after break_start", prefix)
		}
		if !breakStart.After(opens) || !breakEnd.Before(shuts) {
			return fmt.Errorf("%s: break must be within opening hours", prefix)
		}
	}

	for i, d := range h.DaysOff {
		if d < 1 || d > 7 {
			return fmt.Errorf("%s.days_off[%d]: invalid day %d, must be 1-7 (1=Mon, 7=Sun)", prefix, i, d)
		}
	}

	return nil
}

// IsDayOff reports whether weekday (1=Mon, 7=Sun) is configured closed.
func (h *HoursConfig) IsDayOff(weekday int) bool {
	for _, d := range h.DaysOff {
		if d == weekday {
			return true
		}
	}
	return false
}

// GetPremisesByID returns premises config by ID.
func (c *PremisesCatalog) GetPremisesByID(id int) *PremisesConfig {
	for i := range c.Premises {
		if c.Premises[i].ID == id {
			return &c.Premises[i]
		}
	}
	return nil
}

// GetPremisesBySlug returns premises config by slug.
func (c *PremisesCatalog) GetPremisesBySlug(s string) *PremisesConfig {
	for i := range c.Premises {
		if c.Premises[i].Slug == s {
			return &c.Premises[i]
		}
	}
	return nil
}

// String returns a summary of the configuration.
func (c *PremisesCatalog) String() string {
	active := 0
	for _, p := range c.Premises {
		if p.IsActive {
			active++
		}
	}
	return fmt.Sprintf("PremisesCatalog: %d premises (%d active), %d holidays",
		len(c.Premises), active, len(c.Holidays))
}
