package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrCSRFNotFound     = fmt.Errorf("CSRF token not found on login page")
	ErrLoginFormMissing = fmt.Errorf("unable to locate login form")
	ErrAuthCodeMissing  = fmt.Errorf("authorization code not found")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")

	// API and service errors
	ErrAPIRequest    = fmt.Errorf("API request failed")
	ErrAlbumNotFound = fmt.Errorf("album not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
