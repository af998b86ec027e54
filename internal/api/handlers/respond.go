package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/botgrid/gateway/internal/botproxy"
	"github.com/botgrid/gateway/internal/registry"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondRaw relays a downstream JSON body verbatim.
func respondRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// respondDenied is the 401 surface for missing or insufficient scope.
// No body, matching the uniform AuthorizationDenied envelope.
func respondDenied(w http.ResponseWriter) {
	w.WriteHeader(http.StatusUnauthorized)
}

// respondRegistryError translates a registry failure: a miss becomes
// 404 with the canonical message, anything else is a storage error.
func respondRegistryError(w http.ResponseWriter, err error) {
	if registry.IsNotFound(err) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

// respondProxyError surfaces a downstream bot failure as a
// 500-equivalent carrying the failure detail.
func respondProxyError(w http.ResponseWriter, err error) {
	var pe *botproxy.Error
	if errors.As(err, &pe) {
		respondError(w, http.StatusInternalServerError, pe.Message())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
