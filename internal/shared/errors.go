package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthenticated indicates the caller has no authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden indicates the caller is authenticated but lacks rights.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates the request clashes with existing state.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUploadFailed indicates a media upload could not be stored.
	ErrUploadFailed = errors.New("upload failed")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
