package auth

// AdminScope is the fixed administrative scope required to register bots.
const AdminScope = "gateway-admin"

// WriteScope returns the per-bot write scope for the given bot name.
func WriteScope(bot string) string {
	return bot + "-write"
}

// Gate decides whether a principal may perform an operation requiring a
// given scope. When identity verification is disabled system-wide the
// gate always allows: the deployment is assumed to be perimeter-secured
// elsewhere.
type Gate struct {
	enabled bool
}

// NewGate creates a Gate. enabled mirrors the system-wide identity
// verification switch.
func NewGate(enabled bool) *Gate {
	return &Gate{enabled: enabled}
}

// Allow reports whether the principal holds the required scope.
func (g *Gate) Allow(p Principal, scope string) bool {
	if !g.enabled {
		return true
	}
	return p.Authenticated && p.HasRole(scope)
}
