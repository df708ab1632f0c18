package monitor

import "errors"

var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("monitor is already running")
	// ErrNotRunning is returned by Stop when no run is active.
	ErrNotRunning = errors.New("monitor is not running")
	// ErrMisconfigured is returned by Start when no upload destination is configured.
	ErrMisconfigured = errors.New("upload destination is not configured")
)
