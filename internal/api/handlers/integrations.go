package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/botgrid/gateway/internal/clementine"
	"github.com/botgrid/gateway/pkg/models"
)

// integrationPayload is the raw inbound shape for POST /integration.
// UUID presence (not emptiness) decides create vs update, so it is a
// pointer here and resolved into a tagged request exactly once.
type integrationPayload struct {
	UUID   *string         `json:"uuid"`
	Bot    string          `json:"bot"`
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

// UpsertIntegration routes a payload without a uuid to create and a
// payload with one to update.
func (h *Handlers) UpsertIntegration(w http.ResponseWriter, r *http.Request) {
	var payload integrationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.UUID == nil {
		integration, err := h.Clementine.Create(r.Context(), clementine.CreateIntegrationRequest{
			Bot:    payload.Bot,
			Name:   payload.Name,
			Type:   payload.Type,
			Config: payload.Config,
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, integration)
		return
	}

	id, err := uuid.Parse(*payload.UUID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid uuid")
		return
	}
	integration, err := h.Clementine.Update(r.Context(), clementine.UpdateIntegrationRequest{
		UUID:   id,
		Bot:    payload.Bot,
		Name:   payload.Name,
		Type:   payload.Type,
		Config: payload.Config,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, integration)
}

func (h *Handlers) DeleteIntegration(w http.ResponseWriter, r *http.Request) {
	bot, id, ok := integrationKeys(w, r)
	if !ok {
		return
	}

	if err := h.Clementine.Delete(r.Context(), bot, id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) GetIntegration(w http.ResponseWriter, r *http.Request) {
	bot, id, ok := integrationKeys(w, r)
	if !ok {
		return
	}

	integration, err := h.Clementine.Get(r.Context(), bot, id)
	if errors.Is(err, clementine.ErrNoContent) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, integration)
}

func (h *Handlers) ListIntegrations(w http.ResponseWriter, r *http.Request) {
	integrations, err := h.Clementine.List(r.Context(), r.URL.Query().Get("bot"), r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if integrations == nil {
		integrations = []models.Integration{}
	}
	respondJSON(w, http.StatusOK, integrations)
}

func (h *Handlers) IntegrationBody(w http.ResponseWriter, r *http.Request) {
	body, err := h.Clementine.GenerateConfig(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondRaw(w, body)
}

// integrationKeys reads the bot and uuid query parameters. Both are
// required; their absence is a client-input error surfaced before any
// call to the integration subsystem.
func integrationKeys(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	bot := r.URL.Query().Get("bot")
	rawID := r.URL.Query().Get("uuid")
	if bot == "" || rawID == "" {
		respondError(w, http.StatusBadRequest, "Missing parameters. Needed {bot, uuid}")
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid uuid")
		return "", uuid.Nil, false
	}
	return bot, id, true
}
