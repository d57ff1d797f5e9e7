package engine

import "github.com/google/uuid"

// RunIDGenerator names new runs.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator issues UUIDv7 run ids. Their leading timestamp makes
// ORDER BY id list runs oldest first. Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. It panics only if the system
// random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// staticRunID reuses an existing run id, for replays.
type staticRunID string

func (s staticRunID) Generate() string { return string(s) }
