package driven

// ConfigStore is a flat key/value view over the settings file. Keys are
// dotted paths such as "chunking.window". Typed getters return the zero
// value for missing keys or values of the wrong type.
type ConfigStore interface {
	// Get returns the raw value and whether the key is present.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int

	// GetFloat also accepts integer values.
	GetFloat(key string) float64

	GetBool(key string) bool

	// Keys lists the stored keys, sorted.
	Keys() []string

	// Set updates key and writes the store through to disk.
	Set(key string, value any) error

	// Save writes the current values.
	Save() error

	// Load replaces the current values with what is on disk.
	Load() error

	// Path is where the store persists, empty when it does not.
	Path() string
}
