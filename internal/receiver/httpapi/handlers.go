package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nakayama-software/ciren-sub000/internal/receiver/history"
	"github.com/nakayama-software/ciren-sub000/internal/receiver/utils"
)

const (
	defaultRecordLimit = 20
	maxRecordLimit     = 500
)

type hubHandlers struct {
	repo history.Repository
}

func registerHubRoutes(mux *http.ServeMux, repo history.Repository) {
	h := &hubHandlers{repo: repo}
	mux.HandleFunc("GET /api/v1/hubs", h.handleListHubs)
	mux.HandleFunc("GET /api/v1/hubs/{id}/records", h.handleHubRecords)
}

func (h *hubHandlers) handleListHubs(w http.ResponseWriter, r *http.Request) {
	hubs, err := h.repo.GetHubs()
	if err != nil {
		slog.Error("list hubs", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to list hubs")
		return
	}
	if hubs == nil {
		hubs = []history.HubSummary{}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"hubs": hubs})
}

func (h *hubHandlers) handleHubRecords(w http.ResponseWriter, r *http.Request) {
	hubID := strings.TrimSpace(r.PathValue("id"))
	if hubID == "" {
		utils.WriteError(w, http.StatusBadRequest, "hub id is required")
		return
	}

	limit := defaultRecordLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			utils.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxRecordLimit {
			n = maxRecordLimit
		}
		limit = n
	}

	records, err := h.repo.GetLatestRecords(hubID, limit)
	if err != nil {
		slog.Error("get hub records", "hub_id", hubID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to get records")
		return
	}
	if records == nil {
		records = []history.StoredRecord{}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"hub_id":  hubID,
		"records": records,
	})
}
