// Package botproxy translates logical bot operations into outbound HTTP
// calls against a resolved bot instance and maps failures to a uniform
// error. Successful downstream JSON is passed through verbatim; the
// gateway does not interpret bot-specific payload shapes.
package botproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/botgrid/gateway/pkg/models"
)

// Error wraps a transport failure or downstream error response from a
// bot instance. Callers surface it as a 500-equivalent carrying Detail.
type Error struct {
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the failure detail shown to the caller: the downstream
// message when one was available, otherwise the raw error.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Err.Error()
}

// Client issues the per-operation downstream calls. One instance is
// shared by all requests; it holds no per-bot state.
type Client struct {
	http *http.Client
}

// NewClient creates a proxy client using the given HTTP client, or
// http.DefaultClient when nil.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient}
}

// ── Reads ───────────────────────────────────────────────────

// Status probes the bot's root endpoint. Any failure means the bot is
// not reachable at its registered location.
func (c *Client) Status(ctx context.Context, bot *models.Bot) error {
	_, err := c.do(ctx, "status", http.MethodGet, bot.BaseURL()+"/", nil)
	return err
}

// Language fetches the bot's current language settings.
func (c *Client) Language(ctx context.Context, bot *models.Bot) (json.RawMessage, error) {
	return c.do(ctx, "language", http.MethodGet, bot.BaseURL()+"/language", nil)
}

// Actions lists the bot's registered actions.
func (c *Client) Actions(ctx context.Context, bot *models.Bot) (json.RawMessage, error) {
	return c.do(ctx, "actions", http.MethodGet, bot.BaseURL()+"/actions", nil)
}

// Phrases lists the bot's small-talk phrases.
func (c *Client) Phrases(ctx context.Context, bot *models.Bot) (json.RawMessage, error) {
	return c.do(ctx, "phrases", http.MethodGet, bot.BaseURL()+"/phrases", nil)
}

// Intents lists the bot's known intents.
func (c *Client) Intents(ctx context.Context, bot *models.Bot) (json.RawMessage, error) {
	return c.do(ctx, "intents", http.MethodGet, bot.BaseURL()+"/example", nil)
}

// Examples lists the example utterances registered for one intent.
func (c *Client) Examples(ctx context.Context, bot *models.Bot, intent string) (json.RawMessage, error) {
	return c.do(ctx, "examples", http.MethodGet, bot.BaseURL()+"/example/"+intent, nil)
}

// ── Atomic mutations ────────────────────────────────────────

type phrasesPayload struct {
	Phrases []models.Phrase `json:"phrases"`
}

// AddPhrases pushes phrases to the bot in a single call.
func (c *Client) AddPhrases(ctx context.Context, bot *models.Bot, phrases []models.Phrase) error {
	_, err := c.do(ctx, "add phrases", http.MethodPost, bot.BaseURL()+"/phrases", phrasesPayload{Phrases: phrases})
	return err
}

// DeletePhrase removes a single phrase from the bot.
func (c *Client) DeletePhrase(ctx context.Context, bot *models.Bot, intent, text string) error {
	payload := phrasesPayload{Phrases: []models.Phrase{{Intent: intent, Text: text}}}
	_, err := c.do(ctx, "delete phrase", http.MethodDelete, bot.BaseURL()+"/phrases", payload)
	return err
}

type examplePayload struct {
	Example string `json:"example"`
	Intent  string `json:"intent,omitempty"`
}

// AddExample pushes one example utterance for an intent.
func (c *Client) AddExample(ctx context.Context, bot *models.Bot, example, intent string) error {
	_, err := c.do(ctx, "add example", http.MethodPost, bot.BaseURL()+"/example", examplePayload{Example: example, Intent: intent})
	return err
}

// DeleteExample removes one example utterance.
func (c *Client) DeleteExample(ctx context.Context, bot *models.Bot, example string) error {
	_, err := c.do(ctx, "delete example", http.MethodDelete, bot.BaseURL()+"/example", examplePayload{Example: example})
	return err
}

// SetLanguage changes the bot's language.
func (c *Client) SetLanguage(ctx context.Context, bot *models.Bot, countryCode string) error {
	payload := map[string]string{"country_code": countryCode}
	_, err := c.do(ctx, "set language", http.MethodPost, bot.BaseURL()+"/language", payload)
	return err
}

// ── Intent creation ─────────────────────────────────────────

type actionPayload struct {
	Name     string         `json:"name"`
	Intent   string         `json:"intent"`
	Settings map[string]any `json:"settings"`
}

// CreateIntent registers an action/intent pair with the bot and pushes
// the accompanying example utterances one by one.
//
// Both steps are best-effort: a failed action push and each failed
// example push are logged and swallowed, and the remaining pushes still
// run. Once attempted, the operation as a whole always succeeds; there
// is no compensating rollback. Pushes are strictly sequential so the
// order of logged failures is deterministic.
func (c *Client) CreateIntent(ctx context.Context, bot *models.Bot, req models.CreateIntentRequest) {
	payload := actionPayload{Name: req.Action, Intent: req.Intent, Settings: map[string]any{}}
	if _, err := c.do(ctx, "create intent", http.MethodPost, bot.BaseURL()+"/actions", payload); err != nil {
		log.Warn().
			Err(err).
			Str("bot", bot.Name).
			Str("intent", req.Intent).
			Msg("couldn't update core bot: failed to push action")
	}

	for _, example := range req.Examples {
		if err := c.AddExample(ctx, bot, example, req.Intent); err != nil {
			log.Warn().
				Err(err).
				Str("bot", bot.Name).
				Str("intent", req.Intent).
				Str("example", example).
				Msg("couldn't update core bot: failed to push example")
		}
	}
}

// ── Conversation ────────────────────────────────────────────

// Handle forwards a user utterance plus session identifier to the bot
// and returns its interpretation result.
func (c *Client) Handle(ctx context.Context, bot *models.Bot, identifier, query string) (json.RawMessage, error) {
	payload := map[string]string{"identifier": identifier, "query": query}
	return c.do(ctx, "handle", http.MethodPost, bot.BaseURL()+"/handle", payload)
}

// Explain asks the bot to explain its decision for a query.
func (c *Client) Explain(ctx context.Context, bot *models.Bot, query string) (json.RawMessage, error) {
	payload := map[string]string{"query": query}
	return c.do(ctx, "explain", http.MethodPost, bot.BaseURL()+"/explain", payload)
}

// ── Transport ───────────────────────────────────────────────

// do issues one downstream call and returns the raw response body.
// Transport failures and non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, op, method, url string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("encode payload: %w", err)}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, Detail: errorDetail(resp.StatusCode, raw)}
	}
	return raw, nil
}

// errorDetail extracts the downstream error message when the body
// carries one, falling back to the HTTP status.
func errorDetail(status int, body []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return fmt.Sprintf("bot returned status %d", status)
}
