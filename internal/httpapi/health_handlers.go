package httpapi

import (
	"encoding/json"
	"net/http"

	"probatescout-engine/internal/events"
)

type HealthHandler struct {
	Hub *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	subs := 0
	if h.Hub != nil {
		subs = h.Hub.Subscribers()
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":          true,
		"subscribers": subs,
	})
}
