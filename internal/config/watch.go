package config

import (
	"context"
	"os"
	"reflect"
	"time"

	"github.com/rs/zerolog"
)

// WatchPremises applies premises.yaml once, then polls it and calls onUpdate
// again only when the parsed catalogue differs from the last one applied.
// A file that fails to parse or validate is logged and the previous
// catalogue stays in force.
func WatchPremises(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*PremisesCatalog)) error {
	if path == "" {
		path = "configs/premises.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	applied, err := LoadPremisesCatalog(path)
	if err != nil {
		return err
	}
	onUpdate(applied)

	w := &premisesWatcher{path: path, lastMod: info.ModTime(), applied: applied, logger: logger, onUpdate: onUpdate}
	go w.run(ctx, interval)
	return nil
}

type premisesWatcher struct {
	path     string
	lastMod  time.Time
	applied  *PremisesCatalog
	logger   *zerolog.Logger
	onUpdate func(*PremisesCatalog)
}

func (w *premisesWatcher) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *premisesWatcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("premises config unreadable")
		return
	}
	if !info.ModTime().After(w.lastMod) {
		return
	}
	w.lastMod = info.ModTime()

	cfg, err := LoadPremisesCatalog(w.path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("premises config rejected, keeping previous")
		return
	}
	if reflect.DeepEqual(cfg, w.applied) {
		w.logger.Debug().Str("path", w.path).Msg("premises config touched without changes")
		return
	}
	w.applied = cfg
	w.onUpdate(cfg)
}
