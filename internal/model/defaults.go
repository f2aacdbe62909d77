package model

import "time"

// Shared defaults used by the server and CLI binaries.
const (
	// DefaultEvery is the plugin polling interval when none is configured.
	DefaultEvery = 1 * time.Minute

	// DefaultQueryWindow is how far back a range query reaches when the
	// caller gives no lower bound.
	DefaultQueryWindow = 7 * 24 * time.Hour
)
