package constants

const (
	AuthorizationHeaderName = "Authorization"
	ContentTypeHeaderName   = "Content-Type"
	CorrelationIDHeaderName = "X-Correlation-ID"
	ActorIDHeaderName       = "X-Actor-ID"
	ActorKindHeaderName     = "X-Actor-Kind"
	ContentTypeJSON         = "application/json"
	DefaultPageSize         = 30
	MaxPageSize             = 100
	TokenTypeBearer         = "Bearer"

	// APIBasePath is the prefix for every internal API route.
	APIBasePath = "/api/v1"
)
