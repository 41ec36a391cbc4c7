package auth

// Scopes granted to read API tokens.
const (
	ScopeActivitiesRead  = "activities:read"
	ScopeActivitiesWrite = "activities:write"
	ScopeStatsRead       = "stats:read"
	ScopeExportsRead     = "exports:read"
)
