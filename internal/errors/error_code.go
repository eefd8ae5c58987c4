package errors

// ErrorCode identifies the kind of a failure.
type ErrorCode int

// Category groups error codes by hundreds.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryConfiguration
	CategoryConnectivity
	CategoryPersistence
	CategoryDisplay
)

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidParameter     ErrorCode = 101
	ErrCodeInvalidCredentials   ErrorCode = 102
	ErrCodeUnsupportedMode      ErrorCode = 103

	// Connectivity errors (200-299)
	ErrCodeConnectivity     ErrorCode = 200
	ErrCodeAuthentication   ErrorCode = 201
	ErrCodeOrderRejected    ErrorCode = 202
	ErrCodeNoPrice          ErrorCode = 203
	ErrCodeRetriesExhausted ErrorCode = 204

	// Persistence errors (300-399)
	ErrCodePersistence ErrorCode = 300
	ErrCodeLoadFailed  ErrorCode = 301
	ErrCodeSaveFailed  ErrorCode = 302

	// Display errors (400-499)
	ErrCodeDisplay ErrorCode = 400
)

// Category returns the category the code belongs to.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryConfiguration
	case c >= 200 && c < 300:
		return CategoryConnectivity
	case c >= 300 && c < 400:
		return CategoryPersistence
	case c >= 400 && c < 500:
		return CategoryDisplay
	}

	return CategoryUnknown
}
