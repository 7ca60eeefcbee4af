// Package codes defines the stable error codes returned by the API.
package codes

const (
	// General errors
	InternalServerError = "HSE-5000"
	DatabaseError       = "HSE-5001"
	GatewayError        = "HSE-5002"
	IntegrityError      = "HSE-5003"
	InvalidRequest      = "HCE-4000"
	ValidationError     = "HCE-4001"
	ResourceNotFound    = "HCE-4004"
	ConflictError       = "HCE-4009"

	// Consent-specific errors
	ConsentNotFound        = "HCE-4040"
	ConsentCallbackInvalid = "HCE-4041"
	ArtifactNotActive      = "HCE-4042"

	// Fetch-specific errors
	FetchNotFound       = "HCE-4050"
	FetchNotCancellable = "HCE-4051"
	FetchScopeExceeded  = "HCE-4052"

	// Record-specific errors
	RecordNotFound        = "HCE-4060"
	BundleInvalid         = "HCE-4061"
	RecordIntegrityFailed = "HSE-5030"
)
