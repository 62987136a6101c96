package errors

// Service codes (AA)
const (
	// ServiceCommon is for common/base errors shared by all services.
	ServiceCommon = 0

	// ServiceInfraDB is for database infrastructure.
	ServiceInfraDB = 10

	// ServiceInfraCache is for cache infrastructure.
	ServiceInfraCache = 11

	// ServiceRetrieval is for the hybrid retrieval service.
	ServiceRetrieval = 21
)

// Category codes (BB)
const (
	// CategorySuccess indicates successful operation.
	CategorySuccess = 0

	// CategoryRequest indicates request/validation errors.
	CategoryRequest = 1

	// CategoryAuth indicates authentication errors.
	CategoryAuth = 2

	// CategoryPermission indicates authorization errors.
	CategoryPermission = 3

	// CategoryResource indicates resource not found errors.
	CategoryResource = 4

	// CategoryConflict indicates resource conflict errors.
	CategoryConflict = 5

	// CategoryRateLimit indicates rate limiting errors.
	CategoryRateLimit = 6

	// CategoryInternal indicates internal server errors.
	CategoryInternal = 7

	// CategoryDatabase indicates database errors.
	CategoryDatabase = 8

	// CategoryCache indicates cache errors.
	CategoryCache = 9

	// CategoryNetwork indicates network errors.
	CategoryNetwork = 10

	// CategoryTimeout indicates timeout errors.
	CategoryTimeout = 11

	// CategoryConfig indicates configuration errors.
	CategoryConfig = 12
)

// MakeCode creates an error code from service, category, and sequence.
// Format: AABBCCC where AA=service, BB=category, CCC=sequence
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode parses an error code into service, category, and sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code % 100000) / 1000
	sequence = code % 1000
	return
}

// GetService returns the service code from an error code.
func GetService(code int) int {
	return code / 100000
}

// GetCategory returns the category code from an error code.
func GetCategory(code int) int {
	return (code % 100000) / 1000
}

// GetSequence returns the sequence number from an error code.
func GetSequence(code int) int {
	return code % 1000
}

// IsSuccess checks if the error code indicates success.
func IsSuccess(code int) bool {
	return code == 0
}

// IsClientError checks if the error code indicates a client error (4xx).
func IsClientError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryRequest && category <= CategoryRateLimit
}

// IsServerError checks if the error code indicates a server error (5xx).
func IsServerError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryInternal && category <= CategoryConfig
}
