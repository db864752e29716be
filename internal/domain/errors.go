package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrItemNotFound indicates the requested content item does not exist
	ErrItemNotFound = errors.New("content item not found")

	// ErrSetlistNotFound indicates the requested setlist does not exist
	ErrSetlistNotFound = errors.New("setlist not found")

	// ErrNoFileReference indicates a file-based item with no cached copy and no remote URL
	ErrNoFileReference = errors.New("no file reference")

	// ErrHandleReleased indicates a read through a handle whose lease was already released
	ErrHandleReleased = errors.New("file handle already released")

	// ErrServerOffline indicates the content server is unreachable
	ErrServerOffline = errors.New("content server is unreachable")

	// ErrAuthFailed indicates authentication failed
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNotConfigured indicates the server URL or token is missing
	ErrNotConfigured = errors.New("server is not configured")
)
