// Package models defines the domain types shared across the gateway:
// registered bots, settings responses, proxied request payloads, and
// integration records.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ── Bots ────────────────────────────────────────────────────

// BotType identifies the runtime flavor of a registered bot instance.
type BotType string

const (
	// BotTypeRobert is the default core bot runtime.
	BotTypeRobert BotType = "robert"
	// BotTypeCharlotte is the lightweight alternative runtime.
	BotTypeCharlotte BotType = "charlotte"
)

// NormalizeBotType maps an arbitrary client-supplied type string onto the
// closed BotType enumeration. Matching is case-insensitive; anything that
// is not "charlotte" falls back to "robert".
func NormalizeBotType(raw string) BotType {
	if strings.ToLower(raw) == string(BotTypeCharlotte) {
		return BotTypeCharlotte
	}
	return BotTypeRobert
}

// Bot is a registered conversational-bot instance. Name is the primary
// key; Host carries the scheme (e.g. "http://core-bot") and together with
// Port forms the base URL for every proxied call.
type Bot struct {
	Name string  `json:"name"`
	Host string  `json:"host"`
	Port int     `json:"port"`
	Type BotType `json:"type"`
}

// BaseURL returns the downstream address proxied calls are issued against.
func (b *Bot) BaseURL() string {
	return b.Host + ":" + strconv.Itoa(b.Port)
}

// RegisterBotRequest is the payload for POST /bot.
type RegisterBotRequest struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
	Type string `json:"type"`
}

// ── Settings ────────────────────────────────────────────────

// BotSettings is the full settings response, returned to callers holding
// the per-bot write scope.
type BotSettings struct {
	Name     string          `json:"name"`
	Host     string          `json:"host"`
	Port     int             `json:"port"`
	Type     BotType         `json:"type"`
	Language json.RawMessage `json:"language"`
}

// RedactedBotSettings is the settings response for callers without the
// write scope: location and type are blanked, only the downstream
// language payload is retained.
type RedactedBotSettings struct {
	Host     string          `json:"host"`
	Port     string          `json:"port"`
	Type     string          `json:"type"`
	Language json.RawMessage `json:"language"`
}

// ── Proxied request payloads ────────────────────────────────

// Phrase is a small-talk phrase bound to an intent.
type Phrase struct {
	Text   string `json:"text"`
	Intent string `json:"intent"`
}

// AddPhrasesRequest is the payload for POST /phrases.
type AddPhrasesRequest struct {
	Bot     string   `json:"bot"`
	Phrases []Phrase `json:"phrases"`
}

// DeletePhraseRequest is the payload for DELETE /phrase.
type DeletePhraseRequest struct {
	Bot    string `json:"bot"`
	Intent string `json:"intent"`
	Text   string `json:"text"`
}

// ExampleRequest is the payload for POST /example and DELETE /example.
// Intent is unused on delete.
type ExampleRequest struct {
	Bot     string `json:"bot"`
	Example string `json:"example"`
	Intent  string `json:"intent,omitempty"`
}

// CreateIntentRequest is the payload for POST /intent. Examples are
// optional; each one present is pushed to the bot individually.
type CreateIntentRequest struct {
	Bot      string   `json:"bot"`
	Intent   string   `json:"intent"`
	Action   string   `json:"action"`
	Examples []string `json:"examples,omitempty"`
}

// HandleRequest forwards a user utterance to a bot for interpretation.
type HandleRequest struct {
	Bot        string `json:"bot"`
	Identifier string `json:"identifier"`
	Query      string `json:"query"`
}

// ExplainRequest asks a bot to explain its decision for a query.
type ExplainRequest struct {
	Bot   string `json:"bot"`
	Query string `json:"query"`
}

// SetLanguageRequest changes a bot's language.
type SetLanguageRequest struct {
	Bot         string `json:"bot"`
	CountryCode string `json:"country_code"`
}

// ── Integrations ────────────────────────────────────────────

// Integration is a third-party connector (e.g. a CMS plugin) associated
// with a bot. Its lifecycle is owned by the integration subsystem; the
// gateway only relays it.
type Integration struct {
	UUID      string          `json:"uuid"`
	Bot       string          `json:"bot"`
	Name      string          `json:"name,omitempty"`
	Type      string          `json:"type"`
	Config    json.RawMessage `json:"config,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}
