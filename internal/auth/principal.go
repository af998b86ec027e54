// Package auth resolves the per-request principal against the external
// identity provider and answers scope checks for it.
//
// Identity verification is fail-open: a credential that cannot be
// verified degrades the request to anonymous instead of rejecting it.
// Scope checks then deny wherever a scope is required.
package auth

import "slices"

// Principal is the resolved identity of one inbound request. The zero
// value is the anonymous principal. Never persisted; lifetime is the
// request it was resolved for.
type Principal struct {
	// Authenticated is true when the bearer credential was verified
	// against the identity provider.
	Authenticated bool

	// Subject is the identity provider's stable user identifier.
	Subject string

	// Username is the preferred username reported by the provider.
	Username string

	// Email may be empty.
	Email string

	// Roles are the role strings granted to this identity, scoped to
	// the gateway's client id.
	Roles []string
}

// Anonymous is the principal for requests without a verified identity.
var Anonymous = Principal{}

// HasRole reports whether the principal was granted the given role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}
