package ir

// Version constants for stored records.
const (
	// IRVersion is the value model version written alongside each dispatch.
	IRVersion = "1"

	// EngineVersion is the exposure tracker version.
	EngineVersion = "0.1.0"
)
