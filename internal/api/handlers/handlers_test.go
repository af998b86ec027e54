package handlers_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/botgrid/gateway/internal/api"
	"github.com/botgrid/gateway/internal/api/handlers"
	"github.com/botgrid/gateway/internal/auth"
	"github.com/botgrid/gateway/internal/botproxy"
	"github.com/botgrid/gateway/internal/clementine"
	"github.com/botgrid/gateway/internal/config"
	"github.com/botgrid/gateway/internal/registry"
	"github.com/botgrid/gateway/pkg/models"
)

// ── Fixtures ────────────────────────────────────────────────

// fakeBot is a downstream bot instance recording every call.
type fakeBot struct {
	mu      sync.Mutex
	calls   []string
	handler func(w http.ResponseWriter, r *http.Request) bool
	server  *httptest.Server
}

func newFakeBot(t *testing.T) *fakeBot {
	t.Helper()
	fb := &fakeBot{}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.calls = append(fb.calls, r.Method+" "+r.URL.Path)
		fb.mu.Unlock()
		if fb.handler != nil && fb.handler(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBot) hostPort(t *testing.T) (string, int) {
	t.Helper()
	u, err := url.Parse(fb.server.URL)
	if err != nil {
		t.Fatalf("parse bot URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse bot port: %v", err)
	}
	return u.Scheme + "://" + u.Hostname(), port
}

func (fb *fakeBot) callList() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.calls...)
}

// gateway wires a full router around an in-memory registry and fakes.
type gateway struct {
	reg     *registry.MemoryRegistry
	handler http.Handler
}

func newGateway(t *testing.T, kc config.KeycloakConfig, clementineURL string) *gateway {
	t.Helper()
	reg := registry.NewMemoryRegistry()
	h := handlers.New(
		reg,
		botproxy.NewClient(nil),
		clementine.NewClient(clementineURL, nil),
		auth.NewGate(kc.Enabled),
	)
	return &gateway{
		reg:     reg,
		handler: api.NewRouter(h, auth.NewVerifier(kc)),
	}
}

func (g *gateway) registerBot(t *testing.T, fb *fakeBot, name string) {
	t.Helper()
	host, port := fb.hostPort(t)
	err := g.reg.Register(context.Background(), &models.Bot{
		Name: name, Host: host, Port: port, Type: models.BotTypeRobert,
	})
	if err != nil {
		t.Fatalf("register bot %q: %v", name, err)
	}
}

func (g *gateway) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.handler.ServeHTTP(w, req)
	return w
}

// newKeycloak starts a userinfo endpoint accepting every credential and
// returns the matching config.
func newKeycloak(t *testing.T) config.KeycloakConfig {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"user-1","preferred_username":"tester"}`))
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse keycloak URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse keycloak port: %v", err)
	}
	return config.KeycloakConfig{
		Enabled:  true,
		Host:     u.Scheme + "://" + u.Hostname(),
		Port:     port,
		Realm:    "botgrid",
		ClientID: "gateway",
	}
}

// makeToken builds an unsigned bearer token carrying roles for the
// gateway client.
func makeToken(t *testing.T, roles ...string) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"resource_access": map[string]any{
			"gateway": map[string]any{"roles": roles},
		},
	})
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return "eyJhbGciOiJSUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

var disabledAuth = config.KeycloakConfig{Enabled: false}

// ── Bot registry surface ────────────────────────────────────

func TestRegisterBotNormalizesType(t *testing.T) {
	g := newGateway(t, disabledAuth, "")

	resp := g.do(t, http.MethodPost, "/bot", `{"name":"acme","host":"http://h","port":9,"type":"ROBERT"}`, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /bot status = %d, want 200", resp.Code)
	}

	bot, err := g.reg.Resolve(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if bot.Type != models.BotTypeRobert {
		t.Errorf("stored type = %q, want %q", bot.Type, models.BotTypeRobert)
	}
	if bot.Host != "http://h" || bot.Port != 9 {
		t.Errorf("stored location = %s:%d, want http://h:9", bot.Host, bot.Port)
	}
}

func TestRegisterBotUnknownTypeFallsBack(t *testing.T) {
	g := newGateway(t, disabledAuth, "")

	resp := g.do(t, http.MethodPost, "/bot", `{"name":"b","host":"http://h","port":1,"type":"mystery"}`, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /bot status = %d, want 200", resp.Code)
	}
	bot, _ := g.reg.Resolve(context.Background(), "b")
	if bot.Type != models.BotTypeRobert {
		t.Errorf("stored type = %q, want fallback %q", bot.Type, models.BotTypeRobert)
	}
}

func TestRegisterBotRequiresAdminScope(t *testing.T) {
	g := newGateway(t, newKeycloak(t), "")

	body := `{"name":"acme","host":"http://h","port":9,"type":"robert"}`

	resp := g.do(t, http.MethodPost, "/bot", body, "")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("anonymous POST /bot status = %d, want 401", resp.Code)
	}

	resp = g.do(t, http.MethodPost, "/bot", body, makeToken(t, "acme-write"))
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("POST /bot without admin scope status = %d, want 401", resp.Code)
	}

	resp = g.do(t, http.MethodPost, "/bot", body, makeToken(t, auth.AdminScope))
	if resp.Code != http.StatusOK {
		t.Errorf("POST /bot with admin scope status = %d, want 200", resp.Code)
	}
}

func TestListBots(t *testing.T) {
	g := newGateway(t, disabledAuth, "")
	fb := newFakeBot(t)
	g.registerBot(t, fb, "acme")

	resp := g.do(t, http.MethodGet, "/bots", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET /bots status = %d, want 200", resp.Code)
	}
	var bots []models.Bot
	if err := json.Unmarshal(resp.Body.Bytes(), &bots); err != nil {
		t.Fatalf("unmarshal bots: %v", err)
	}
	if len(bots) != 1 || bots[0].Name != "acme" {
		t.Errorf("GET /bots = %+v, want the registered bot", bots)
	}
}

// ── Status probe ────────────────────────────────────────────

func TestBotStatusProbesOnce(t *testing.T) {
	g := newGateway(t, disabledAuth, "")
	fb := newFakeBot(t)
	g.registerBot(t, fb, "acme")

	resp := g.do(t, http.MethodGet, "/bot/acme/status", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET /bot/acme/status status = %d, want 200", resp.Code)
	}
	calls := fb.callList()
	if len(calls) != 1 || calls[0] != "GET /" {
		t.Errorf("probe calls = %v, want exactly one GET /", calls)
	}
}

func TestBotStatusUnknownBot(t *testing.T) {
	g := newGateway(t, disabledAuth, "")

	resp := g.do(t, http.MethodGet, "/bot/ghost/status", "", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["error"] != "Bot not found." {
		t.Errorf("error = %q, want %q", body["error"], "Bot not found.")
	}
}

func TestBotStatusProbeFailure(t *testing.T) {
	g := newGateway(t, disabledAuth, "")
	fb := newFakeBot(t)
	fb.handler = func(w http.ResponseWriter, r *http.Request) bool {
		w.WriteHeader(http.StatusInternalServerError)
		return true
	}
	g.registerBot(t, fb, "acme")

	resp := g.do(t, http.MethodGet, "/bot/acme/status", "", "")
	if resp.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.Code)
	}
}

// ── Settings redaction ──────────────────────────────────────

func TestSettingsRedactedWithoutWriteScope(t *testing.T) {
	g := newGateway(t, newKeycloak(t), "")
	fb := newFakeBot(t)
	fb.handler = func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/language" {
			w.Write([]byte(`{"country_code":"en"}`))
			return true
		}
		return false
	}
	g.registerBot(t, fb, "acme")

	resp := g.do(t, http.MethodGet, "/bot/acme/settings", "", makeToken(t, "other-write"))
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (settings are never scope-gated)", resp.Code)
	}

	var settings struct {
		Host     string          `json:"host"`
		Port     string          `json:"port"`
		Type     string          `json:"type"`
		Language json.RawMessage `json:"language"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings.Host != "" || settings.Port != "" || settings.Type != "" {
		t.Errorf("redacted settings = %+v, want blank host/port/type", settings)
	}
	if string(settings.Language) != `{"country_code":"en"}` {
		t.Errorf("language = %s, want the unredacted downstream value", settings.Language)
	}
}

func TestSettingsFullWithWriteScope(t *testing.T) {
	g := newGateway(t, newKeycloak(t), "")
	fb := newFakeBot(t)
	fb.handler = func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/language" {
			w.Write([]byte(`{"country_code":"en"}`))
			return true
		}
		return false
	}
	g.registerBot(t, fb, "acme")

	resp := g.do(t, http.MethodGet, "/bot/acme/settings", "", makeToken(t, "acme-write"))
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}

	var settings models.BotSettings
	if err := json.Unmarshal(resp.Body.Bytes(), &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	host, port := fb.hostPort(t)
	if settings.Name != "acme" || settings.Host != host || settings.Port != port {
		t.Errorf("settings = %+v, want the full record for %s:%d", settings, host, port)
	}
	if settings.Type != models.BotTypeRobert {
		t.Errorf("settings.Type = %q, want %q", settings.Type, models.BotTypeRobert)
	}
}

// ── Scope enforcement ───────────────────────────────────────

func TestWriteScopedEndpointsDenyWithoutScope(t *testing.T) {
	g := newGateway(t, newKeycloak(t), "")
	fb := newFakeBot(t)
	g.registerBot(t, fb, "acme")

	token := makeToken(t, "other-write")

	cases := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/bot/acme/actions", ""},
		{http.MethodGet, "/bot/acme/intents", ""},
		{http.MethodGet, "/intent/greet/bot/acme/examples", ""},
		{http.MethodPost, "/phrases", `{"bot":"acme","phrases":[{"text":"hi","intent":"greet"}]}`},
		{http.MethodDelete, "/phrase", `{"bot":"acme","intent":"greet","text":"hi"}`},
		{http.MethodPost, "/example", `{"bot":"acme","example":"hi","intent":"greet"}`},
		{http.MethodDelete, "/example", `{"bot":"acme","example":"hi"}`},
		{http.MethodPost, "/intent", `{"bot":"acme","intent":"greet","action":"hello"}`},
		{http.MethodPost, "/language", `{"bot":"acme","country_code":"de"}`},
		{http.MethodPost, "/explain", `{"bot":"acme","query":"hi"}`},
	}
	for _, tc := range cases {
		resp := g.do(t, tc.method, tc.target, tc.body, token)
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tc.method, tc.target, resp.Code)
		}
		if resp.Body.Len() != 0 {
			t.Errorf("%s %s denied with body %q, want empty", tc.method, tc.target, resp.Body.String())
		}
	}

	// Nothing may reach the bot on denial.
	if calls := fb.callList(); len(calls) != 0 {
		t.Errorf("downstream calls after denials = %v, want none", calls)
	}
}

func TestWriteScopedEndpointsAllowWhenVerificationDisabled(t *testing.T) {
	g := newGateway(t, disabledAuth, "")
	fb := newFakeBot(t)
	g.registerBot(t, fb, "acme")

	resp := g.do(t, http.MethodGet, "/bot/acme/actions", "", "")
	if resp.Code != http.StatusOK {
		t.Errorf("GET /bot/acme/actions status = %d, want 200 with verification disabled", resp.Code)
	}
	resp = g.do(t, http.MethodPost, "/language", `{"bot":"acme","country_code":"de"}`, "")
	if resp.Code != http.StatusOK {
		t.Errorf("POST /language status = %d, want 200 with verification disabled", resp.Code)
	}
}

func TestPhrasesReadIsUnscoped(t *testing.T) {
	g := newGateway(t, newKeycloak(t), "")
	fb := newFakeBot(t)
	g.registerBot(t, fb, "acme")

	resp := g.do(t, http.MethodGet, "/bot/acme/phrases", "", "")
	if resp.Code != http.StatusOK {
		t.Errorf("anonymous GET /bot/acme/phrases status = %d, want 200", resp.Code)
	}
}

func TestHandleIsUnscoped(t *testing.T) {
	g := newGateway(t, newKeycloak(t), "")
	fb := newFakeBot(t)
	fb.handler = func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/handle" {
			w.Write([]byte(`{"intent":"greet","confidence":0.9}`))
			return true
		}
		return false
	}
	g.registerBot(t, fb, "acme")

	resp := g.do(t, http.MethodPost, "/handle", `{"bot":"acme","identifier":"visitor-1","query":"hi"}`, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("anonymous POST /handle status = %d, want 200", resp.Code)
	}
	if resp.Body.String() != `{"intent":"greet","confidence":0.9}` {
		t.Errorf("handle response = %s, want the bot's interpretation untouched", resp.Body.String())
	}
}

// ── Intent creation partial failure ─────────────────────────

func TestCreateIntentPartialFailureStillSucceeds(t *testing.T) {
	g := newGateway(t, disabledAuth, "")
	fb := newFakeBot(t)
	failedOnce := false
	fb.handler = func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/example" && !failedOnce {
			failedOnce = true
			w.WriteHeader(http.StatusInternalServerError)
			return true
		}
		return false
	}
	g.registerBot(t, fb, "acme")

	body := `{"bot":"acme","intent":"greet","action":"hello","examples":["hi","hello","hey"]}`
	resp := g.do(t, http.MethodPost, "/intent", body, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /intent status = %d, want 200 despite sub-call failure", resp.Code)
	}

	want := []string{"POST /actions", "POST /example", "POST /example", "POST /example"}
	calls := fb.callList()
	if len(calls) != len(want) {
		t.Fatalf("downstream calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

// ── Integration façade ──────────────────────────────────────

// fakeClementine records relayed integration calls.
type fakeClementine struct {
	mu     sync.Mutex
	calls  []string
	server *httptest.Server
}

func newFakeClementine(t *testing.T) *fakeClementine {
	t.Helper()
	fc := &fakeClementine{}
	fc.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fc.mu.Lock()
		fc.calls = append(fc.calls, r.Method+" "+r.URL.Path)
		fc.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","bot":"acme","type":"wordpress"}`))
	}))
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeClementine) callList() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.calls...)
}

func TestIntegrationWithoutUUIDRoutesToCreate(t *testing.T) {
	fc := newFakeClementine(t)
	g := newGateway(t, disabledAuth, fc.server.URL)

	resp := g.do(t, http.MethodPost, "/integration", `{"bot":"acme","type":"wordpress","config":{"url":"https://x"}}`, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /integration status = %d, want 200", resp.Code)
	}
	calls := fc.callList()
	if len(calls) != 1 || calls[0] != "POST /integration" {
		t.Errorf("subsystem calls = %v, want one POST /integration (create)", calls)
	}
}

func TestIntegrationWithUUIDRoutesToUpdate(t *testing.T) {
	fc := newFakeClementine(t)
	g := newGateway(t, disabledAuth, fc.server.URL)

	body := `{"uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","bot":"acme","type":"wordpress"}`
	resp := g.do(t, http.MethodPost, "/integration", body, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /integration status = %d, want 200", resp.Code)
	}
	calls := fc.callList()
	if len(calls) != 1 || calls[0] != "PUT /integration/6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("subsystem calls = %v, want one PUT to the integration (update)", calls)
	}
}

func TestIntegrationEmptyUUIDIsInvalid(t *testing.T) {
	fc := newFakeClementine(t)
	g := newGateway(t, disabledAuth, fc.server.URL)

	// uuid present but empty is an update with an unparsable id, not a create.
	resp := g.do(t, http.MethodPost, "/integration", `{"uuid":"","bot":"acme","type":"wordpress"}`, "")
	if resp.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for present-but-empty uuid", resp.Code)
	}
	if calls := fc.callList(); len(calls) != 0 {
		t.Errorf("subsystem calls = %v, want none", calls)
	}
}

func TestIntegrationKeysRequiredBeforeDelegation(t *testing.T) {
	fc := newFakeClementine(t)
	g := newGateway(t, disabledAuth, fc.server.URL)

	targets := []struct{ method, target string }{
		{http.MethodDelete, "/integration"},
		{http.MethodDelete, "/integration?bot=acme"},
		{http.MethodDelete, "/integration?uuid=6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{http.MethodGet, "/integration"},
		{http.MethodGet, "/integration?bot=acme"},
		{http.MethodGet, "/integration?uuid=6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
	}
	for _, tc := range targets {
		resp := g.do(t, tc.method, tc.target, "", "")
		if resp.Code != http.StatusBadRequest {
			t.Errorf("%s %s status = %d, want 400", tc.method, tc.target, resp.Code)
		}
	}
	if calls := fc.callList(); len(calls) != 0 {
		t.Errorf("subsystem calls = %v, want none before input validation", calls)
	}
}

func TestDeleteIntegrationForwards(t *testing.T) {
	fc := newFakeClementine(t)
	g := newGateway(t, disabledAuth, fc.server.URL)

	resp := g.do(t, http.MethodDelete, "/integration?bot=acme&uuid=6ba7b810-9dad-11d1-80b4-00c04fd430c8", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("DELETE /integration status = %d, want 200", resp.Code)
	}
	calls := fc.callList()
	if len(calls) != 1 || calls[0] != "DELETE /integration/6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("subsystem calls = %v, want one DELETE", calls)
	}
}

// ── Liveness ────────────────────────────────────────────────

func TestBannerAndAlive(t *testing.T) {
	g := newGateway(t, disabledAuth, "")

	resp := g.do(t, http.MethodGet, "/", "", "")
	if resp.Code != http.StatusOK || resp.Body.Len() == 0 {
		t.Errorf("GET / status = %d with body %q, want 200 and a banner", resp.Code, resp.Body.String())
	}

	resp = g.do(t, http.MethodGet, "/alive", "", "")
	if resp.Code != http.StatusOK {
		t.Errorf("GET /alive status = %d, want 200", resp.Code)
	}
}
