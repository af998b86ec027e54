// Package handlers implements the gateway's HTTP surface: bot
// registration and listing, the per-bot proxied operations, and the
// integration façade.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/botgrid/gateway/internal/api/middleware"
	"github.com/botgrid/gateway/internal/auth"
	"github.com/botgrid/gateway/internal/botproxy"
	"github.com/botgrid/gateway/internal/clementine"
	"github.com/botgrid/gateway/internal/registry"
	"github.com/botgrid/gateway/pkg/models"
)

const banner = `"Hello! I'm the gateway. The bots are right behind me."`

// Handlers holds all handler dependencies.
type Handlers struct {
	Registry   registry.Registry
	Proxy      *botproxy.Client
	Clementine *clementine.Client
	Gate       *auth.Gate
}

// New creates a Handlers instance with all dependencies.
func New(reg registry.Registry, proxy *botproxy.Client, cl *clementine.Client, gate *auth.Gate) *Handlers {
	return &Handlers{
		Registry:   reg,
		Proxy:      proxy,
		Clementine: cl,
		Gate:       gate,
	}
}

// ── Liveness ────────────────────────────────────────────────

func (h *Handlers) Banner(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(banner))
}

func (h *Handlers) Alive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Registry.Ping(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ── Bot registry ────────────────────────────────────────────

func (h *Handlers) ListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.Registry.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bots == nil {
		bots = []models.Bot{}
	}
	respondJSON(w, http.StatusOK, bots)
}

func (h *Handlers) RegisterBot(w http.ResponseWriter, r *http.Request) {
	if !h.allow(r, auth.AdminScope) {
		respondDenied(w)
		return
	}

	var req models.RegisterBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bot := &models.Bot{
		Name: req.Name,
		Host: req.Host,
		Port: req.Port,
		Type: models.NormalizeBotType(req.Type),
	}
	if err := h.Registry.Register(r.Context(), bot); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("bot", bot.Name).Str("type", string(bot.Type)).Msg("bot registered")
	w.WriteHeader(http.StatusOK)
}

// ── Per-bot reads ───────────────────────────────────────────

func (h *Handlers) BotStatus(w http.ResponseWriter, r *http.Request) {
	bot, err := h.Registry.Resolve(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	if err := h.Proxy.Status(r.Context(), bot); err != nil {
		respondProxyError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// BotSettings is scope-sensitive but not scope-gated: it always
// succeeds, but without the bot's write scope the location and type are
// blanked and only the downstream language payload is retained.
func (h *Handlers) BotSettings(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	bot, err := h.Registry.Resolve(r.Context(), name)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	language, err := h.Proxy.Language(r.Context(), bot)
	if err != nil {
		respondProxyError(w, err)
		return
	}

	if !h.allow(r, auth.WriteScope(name)) {
		respondJSON(w, http.StatusOK, models.RedactedBotSettings{Language: language})
		return
	}
	respondJSON(w, http.StatusOK, models.BotSettings{
		Name:     bot.Name,
		Host:     bot.Host,
		Port:     bot.Port,
		Type:     bot.Type,
		Language: language,
	})
}

func (h *Handlers) BotActions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.allow(r, auth.WriteScope(name)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), name)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	actions, err := h.Proxy.Actions(r.Context(), bot)
	if err != nil {
		respondProxyError(w, err)
		return
	}
	respondRaw(w, actions)
}

func (h *Handlers) BotPhrases(w http.ResponseWriter, r *http.Request) {
	bot, err := h.Registry.Resolve(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	phrases, err := h.Proxy.Phrases(r.Context(), bot)
	if err != nil {
		respondProxyError(w, err)
		return
	}
	respondRaw(w, phrases)
}

func (h *Handlers) BotIntents(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.allow(r, auth.WriteScope(name)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), name)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	intents, err := h.Proxy.Intents(r.Context(), bot)
	if err != nil {
		respondProxyError(w, err)
		return
	}
	respondRaw(w, intents)
}

func (h *Handlers) IntentExamples(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.allow(r, auth.WriteScope(name)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), name)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	examples, err := h.Proxy.Examples(r.Context(), bot, chi.URLParam(r, "intent"))
	if err != nil {
		respondProxyError(w, err)
		return
	}
	respondRaw(w, examples)
}

// ── Scoped mutations ────────────────────────────────────────

func (h *Handlers) AddPhrases(w http.ResponseWriter, r *http.Request) {
	var req models.AddPhrasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.allow(r, auth.WriteScope(req.Bot)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), req.Bot)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	if err := h.Proxy.AddPhrases(r.Context(), bot, req.Phrases); err != nil {
		respondProxyError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) DeletePhrase(w http.ResponseWriter, r *http.Request) {
	var req models.DeletePhraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.allow(r, auth.WriteScope(req.Bot)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), req.Bot)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	if err := h.Proxy.DeletePhrase(r.Context(), bot, req.Intent, req.Text); err != nil {
		respondProxyError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) AddExample(w http.ResponseWriter, r *http.Request) {
	var req models.ExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.allow(r, auth.WriteScope(req.Bot)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), req.Bot)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	if err := h.Proxy.AddExample(r.Context(), bot, req.Example, req.Intent); err != nil {
		respondProxyError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) DeleteExample(w http.ResponseWriter, r *http.Request) {
	var req models.ExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.allow(r, auth.WriteScope(req.Bot)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), req.Bot)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	if err := h.Proxy.DeleteExample(r.Context(), bot, req.Example); err != nil {
		respondProxyError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// CreateIntent pushes the action/intent pair and any accompanying
// examples to the bot. The pushes are best-effort: failures are logged
// inside the proxy client and the operation reports success once
// attempted.
func (h *Handlers) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.allow(r, auth.WriteScope(req.Bot)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), req.Bot)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	h.Proxy.CreateIntent(r.Context(), bot, req)
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req models.SetLanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.allow(r, auth.WriteScope(req.Bot)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), req.Bot)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	if err := h.Proxy.SetLanguage(r.Context(), bot, req.CountryCode); err != nil {
		respondProxyError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ── Conversation ────────────────────────────────────────────

func (h *Handlers) Handle(w http.ResponseWriter, r *http.Request) {
	var req models.HandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), req.Bot)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	result, err := h.Proxy.Handle(r.Context(), bot, req.Identifier, req.Query)
	if err != nil {
		respondProxyError(w, err)
		return
	}
	respondRaw(w, result)
}

func (h *Handlers) Explain(w http.ResponseWriter, r *http.Request) {
	var req models.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.allow(r, auth.WriteScope(req.Bot)) {
		respondDenied(w)
		return
	}

	bot, err := h.Registry.Resolve(r.Context(), req.Bot)
	if err != nil {
		respondRegistryError(w, err)
		return
	}

	result, err := h.Proxy.Explain(r.Context(), bot, req.Query)
	if err != nil {
		respondProxyError(w, err)
		return
	}
	respondRaw(w, result)
}

// allow checks the request's principal against a required scope.
func (h *Handlers) allow(r *http.Request, scope string) bool {
	return h.Gate.Allow(middleware.GetPrincipal(r.Context()), scope)
}
