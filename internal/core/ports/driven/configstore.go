package driven

// ConfigStore holds settings as flat dot-separated keys ("redis.port").
// Values written with Set are persisted before Set returns.
type ConfigStore interface {
	// Get returns the raw value stored under key.
	Get(key string) (any, bool)

	// GetString returns the value as a string, or "" when it is missing or
	// not a string.
	GetString(key string) string

	// GetInt returns the value as an int. Numeric strings are parsed;
	// anything else yields 0.
	GetInt(key string) int

	// Set stores and persists a value.
	Set(key string, value any) error

	// Path describes where the values live, for display.
	Path() string
}
