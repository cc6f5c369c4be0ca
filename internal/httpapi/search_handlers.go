package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"probatescout-engine/internal/search"
)

type SearchHandler struct {
	Search *search.Runner
}

type searchReq struct {
	Term string `json:"term"`
}

// Run starts a notice search in the background; progress streams over
// /events and the outcome lands in /search/status.
func (h SearchHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	req.Term = strings.TrimSpace(req.Term)
	if req.Term == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_term", "term is required")
		return
	}
	if h.Search.Status().Running {
		WriteError(w, r, http.StatusConflict, "search_running", "a search is already running")
		return
	}

	reqID := RequestIDFrom(r.Context())
	go func() {
		// detached from the request: the caller only gets the acknowledgment
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := h.Search.Run(ctx, reqID, req.Term); err != nil && !errors.Is(err, search.ErrAlreadyRunning) {
			log.Printf("[httpapi] search failed term=%q: %v", req.Term, err)
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true, "term": req.Term})
}

type searchStatusResp struct {
	search.Status
	Results any `json:"results"`
}

func (h SearchHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, searchStatusResp{
		Status:  h.Search.Status(),
		Results: h.Search.Results(),
	})
}
