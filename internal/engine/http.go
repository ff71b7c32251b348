package engine

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/pkg/logger"
)

// defaultReportWindow bounds audit queries without an explicit since value.
const defaultReportWindow = 24 * time.Hour

// ReportingHandler serves the read-only reporting surface: audit entries,
// activity summaries and the effective guild configuration.
func (e *Engine) ReportingHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/guilds/{guild}/audit", e.handleAuditList)
	mux.HandleFunc("GET /v1/guilds/{guild}/summary", e.handleAuditSummary)
	mux.HandleFunc("GET /v1/guilds/{guild}/config", e.handleGuildConfig)
	return logger.Middleware(mux)
}

func (e *Engine) handleAuditList(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("guild")
	since, err := sinceParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "since must be RFC 3339")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	entries, err := e.Audits.Recent(r.Context(), guildID, since, limit)
	if err != nil {
		e.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (e *Engine) handleAuditSummary(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("guild")
	since, err := sinceParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "since must be RFC 3339")
		return
	}

	summary, err := e.Audits.SummarizeRecent(r.Context(), guildID, since)
	if err != nil {
		e.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (e *Engine) handleGuildConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := e.Configs.GetConfig(r.Context(), r.PathValue("guild"))
	if err != nil {
		e.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (e *Engine) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	e.log.Error("reporting request failed",
		slog.String("path", r.URL.Path),
		slog.String("correlation_id", logger.CorrelationIDFromContext(r.Context())),
		slog.Any("error", err),
	)

	status := http.StatusInternalServerError
	if code := econerr.CodeOf(err); code != "" && code != econerr.CodeStorage {
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, string(econerr.CodeOf(err)))
}

func sinceParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Now().Add(-defaultReportWindow), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
