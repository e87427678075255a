package bootstrap

import "errors"

// Misuse errors, returned synchronously from New/Start. Driver errors are
// never wrapped in these; they travel to the ready callback verbatim.
var (
	// ErrNilConfig is returned when no configuration is supplied
	ErrNilConfig = errors.New("config is required")

	// ErrNilDriver is returned when no driver is supplied
	ErrNilDriver = errors.New("driver is required")

	// ErrNilCallback is returned when no ready callback is supplied
	ErrNilCallback = errors.New("ready callback is required")

	// ErrAlreadyStarted is returned when Start is called twice on one instance
	ErrAlreadyStarted = errors.New("bootstrap already started")
)
