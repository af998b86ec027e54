package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/botgrid/gateway/internal/config"
)

// Verifier resolves the principal for an inbound request by verifying
// its bearer credential against the identity provider's userinfo
// endpoint and reading the role claims embedded in the credential.
type Verifier struct {
	cfg    config.KeycloakConfig
	client *http.Client
}

// NewVerifier creates a Verifier for the given identity provider.
func NewVerifier(cfg config.KeycloakConfig) *Verifier {
	return &Verifier{
		cfg:    cfg,
		client: http.DefaultClient,
	}
}

// Enabled reports whether identity verification is active system-wide.
func (v *Verifier) Enabled() bool {
	return v.cfg.Enabled
}

// userinfoResponse is the subset of the OpenID userinfo payload the
// gateway keeps on the principal.
type userinfoResponse struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
}

// Resolve verifies the request's bearer credential and returns the
// authenticated principal. Requests without a bearer credential, and
// requests whose credential fails verification, resolve to Anonymous;
// the error reports why verification failed so the caller can log it.
func (v *Verifier) Resolve(ctx context.Context, r *http.Request) (Principal, error) {
	if !v.cfg.Enabled {
		return Anonymous, nil
	}

	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" {
		return Anonymous, nil
	}

	info, err := v.userinfo(ctx, header)
	if err != nil {
		return Anonymous, err
	}

	roles, err := decodeRoles(token, v.cfg.ClientID)
	if err != nil {
		return Anonymous, err
	}

	return Principal{
		Authenticated: true,
		Subject:       info.Subject,
		Username:      info.PreferredUsername,
		Email:         info.Email,
		Roles:         roles,
	}, nil
}

func (v *Verifier) userinfo(ctx context.Context, authorization string) (*userinfoResponse, error) {
	url := fmt.Sprintf("%s/auth/realms/%s/protocol/openid-connect/userinfo", v.cfg.URL(), v.cfg.Realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}
	return &info, nil
}
