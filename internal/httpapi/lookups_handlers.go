package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"probatescout-engine/internal/store"
)

type LookupsHandler struct {
	DB *sql.DB
}

func (h LookupsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	lookups, err := store.ListLookups(r.Context(), h.DB, store.ListLookupsOpts{
		Kind:   q.Get("kind"),
		Window: q.Get("window"),
		Limit:  limit,
	})
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if lookups == nil {
		lookups = []store.Lookup{}
	}
	writeJSON(w, lookups)
}
