package constants

const (
	// DefaultCookieName is used when no cookie name is configured
	DefaultCookieName = "session"

	// CookiePath is the path attribute applied to the session cookie
	CookiePath = "/"
)

// Error codes returned by the session endpoints
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL"
	CodeMCPError     = "MCP_SERVER_ERROR"
)
