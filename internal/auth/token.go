package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// tokenClaims is the subset of the bearer token's claims the gateway
// reads. Roles are nested under the resource_access claim, keyed by
// client id.
type tokenClaims struct {
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// decodeRoles extracts the role list scoped to clientID from the token's
// payload segment. The signature is not checked here; the token has
// already been verified against the identity provider's userinfo
// endpoint by the caller.
func decodeRoles(token, clientID string) ([]string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed token: expected 3 segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}

	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal token claims: %w", err)
	}

	access, ok := claims.ResourceAccess[clientID]
	if !ok {
		return nil, fmt.Errorf("token carries no roles for client %q", clientID)
	}
	return access.Roles, nil
}
