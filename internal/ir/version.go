package ir

// Version constants for records and engine.
const (
	// IRVersion is the record schema version.
	IRVersion = "1"

	// EngineVersion is the simulation engine version.
	EngineVersion = "0.1.0"
)
