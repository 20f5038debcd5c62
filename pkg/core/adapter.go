package core

// AdapterConfig holds configuration for connecting to an export database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	// Params carries adapter-specific settings, decoded by each adapter.
	Params map[string]any
}
