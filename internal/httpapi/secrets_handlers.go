package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setProxyTokenReq struct {
	Token string `json:"token"`
}

func (h SecretsHandler) SetProxyToken(w http.ResponseWriter, r *http.Request) {
	var req setProxyTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetProxyToken(secrets.ProxyKeyringAccount(cfg), req.Token); err != nil {
		http.Error(w, "failed to store token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteProxyToken(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.DeleteProxyToken(secrets.ProxyKeyringAccount(cfg)); err != nil {
		http.Error(w, "failed to delete token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
