package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-predict/internal/api/respond"
	"github.com/albapepper/scoracle-predict/internal/cache"
	"github.com/albapepper/scoracle-predict/internal/dataset"
	"github.com/albapepper/scoracle-predict/internal/features"
	"github.com/albapepper/scoracle-predict/internal/provider"
	"github.com/albapepper/scoracle-predict/internal/store"
)

// ListSeasons returns a summary of every stored season.
func (h *Handler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	const key = "seasons"
	meta := respond.Cached{Format: respond.JSON, TTL: cache.TTLSeasons}
	if h.serveCached(w, r, key, meta) {
		return
	}

	seasons, err := h.rows.Seasons(r.Context())
	if err != nil {
		h.logger.Error("List seasons failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to list seasons")
		return
	}
	if seasons == nil {
		seasons = []store.SeasonSummary{}
	}
	data, err := json.Marshal(seasons)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to encode response")
		return
	}
	h.writeCached(w, key, data, meta)
}

// GetSeasonRows returns every stored row of a season ("2021-22") as JSON or,
// with ?format=csv or Accept: text/csv, as a season CSV file.
func (h *Handler) GetSeasonRows(w http.ResponseWriter, r *http.Request) {
	season, err := provider.ParseSeason(chi.URLParam(r, "season"))
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, respond.CodeInvalidSeason, "Season must look like 2021-22", err.Error())
		return
	}
	format, err := respond.Negotiate(r)
	if err != nil {
		respond.WriteNotAcceptable(w, err)
		return
	}

	meta := respond.Cached{Format: format, TTL: h.rowsTTL(season), Filename: dataset.SeasonName(season)}
	key := "rows:" + season.String() + ":" + string(format)
	if h.serveCached(w, r, key, meta) {
		return
	}

	rows, err := h.rows.Rows(r.Context(), season)
	if err != nil {
		h.logger.Error("Read season rows failed", "season", season.String(), "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to read season rows")
		return
	}
	if len(rows) == 0 {
		respond.WriteError(w, http.StatusNotFound, respond.CodeNotFound, "No rows stored for season "+season.String())
		return
	}

	table := respond.Table{Season: season.String(), Columns: features.Columns(rows[0].Labeled())}
	table.Rows = make([][]string, len(rows))
	for i, row := range rows {
		table.Rows[i] = row.Values()
	}
	data, err := table.Encode(format)
	if err != nil {
		h.logger.Error("Encode season rows failed", "season", season.String(), "format", format, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to encode response")
		return
	}
	h.writeCached(w, key, data, meta)
}

// rowsTTL keeps the in-progress season short-lived.
func (h *Handler) rowsTTL(season provider.Season) time.Duration {
	if season == provider.SeasonForDate(civil.DateOf(h.now())) {
		return cache.TTLRows
	}
	return cache.TTLHistoric
}

func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, meta respond.Cached) bool {
	data, etag, ok := h.cache.Get(key)
	if !ok {
		return false
	}
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return true
	}
	meta.ETag, meta.Hit = etag, true
	respond.Write(w, data, meta)
	return true
}

func (h *Handler) writeCached(w http.ResponseWriter, key string, data []byte, meta respond.Cached) {
	meta.ETag = h.cache.Set(key, data, meta.TTL)
	respond.Write(w, data, meta)
}
