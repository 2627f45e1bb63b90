package driven

// Configuration keys understood by knowctl.
const (
	ConfigServerBaseURL       = "server.base_url"
	ConfigServerPathPrefix    = "server.path_prefix"
	ConfigServerTimeout       = "server.timeout_seconds"
	ConfigAuthToken           = "auth.token"
	ConfigAuthSessionCookie   = "auth.session_cookie"
	ConfigAuthCookieName      = "auth.cookie_name"
	ConfigClientMaxRetries    = "client.max_retries"
	ConfigClientRatePerSecond = "client.requests_per_second"
	ConfigCacheEnabled        = "cache.enabled"
	ConfigUIExcerptLength     = "ui.excerpt_length"
)

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Returns 0 if key doesn't exist or isn't an integer.
	GetInt(key string) int

	// GetFloat retrieves a numeric configuration value.
	// Integers are widened. Returns 0 if key doesn't exist or isn't numeric.
	GetFloat(key string) float64

	// GetBool retrieves a boolean configuration value.
	// Returns false if key doesn't exist or isn't a boolean.
	GetBool(key string) bool

	// Keys returns every stored key in dot notation, sorted.
	Keys() []string

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
