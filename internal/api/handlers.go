package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"openinghours/internal/export"
)

// handleGetHours returns the editable week, time choices and closing rule rows.
// GET /api/premises/{slug}/hours
func (s *Server) handleGetHours(w http.ResponseWriter, r *http.Request) {
	p := premisesFrom(r.Context())

	week, err := s.hours.View(r.Context(), p.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.rules.Rows(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	codec := s.hours.Codec()
	writeJSON(w, http.StatusOK, HoursResponse{
		Premises:     p,
		TimeFormat:   int(codec.Format()),
		Choices:      codec.Choices(),
		Week:         week,
		ClosingRules: rows,
	})
}

// handlePutHours replaces the weekly hours; nothing is stored unless every slot is valid.
// PUT /api/premises/{slug}/hours
func (s *Server) handlePutHours(w http.ResponseWriter, r *http.Request) {
	p := premisesFrom(r.Context())

	var req SaveHoursRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.hours.Save(r.Context(), p.ID, req.inputs()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePostClosingRules applies closing rule rows one by one.
// POST /api/premises/{slug}/closing-rules
func (s *Server) handlePostClosingRules(w http.ResponseWriter, r *http.Request) {
	p := premisesFrom(r.Context())

	var req ClosingRulesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.rules.Submit(r.Context(), p, req.inputs())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClosingRulesResponse{Results: results})
}

// handleStatus reports whether the premises is open now or at ?at=RFC3339.
// GET /api/premises/{slug}/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := premisesFrom(r.Context())

	at := s.now()
	if v := r.URL.Query().Get("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at; expected RFC3339")
			return
		}
		at = parsed
	}

	st, err := s.status.Status(r.Context(), p.ID, at)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleExport streams the hours and closing rules as an xlsx workbook.
// GET /api/premises/{slug}/export.xlsx
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p := premisesFrom(r.Context())

	var buf bytes.Buffer
	if err := s.exporter.Export(r.Context(), p.ID, &buf); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(p.Slug, s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
