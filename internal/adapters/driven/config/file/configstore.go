package file

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// Defaults are returned for keys absent from the file.
var Defaults = map[string]any{
	driven.ConfigServerBaseURL:       "http://localhost:8000",
	driven.ConfigServerPathPrefix:    "/knowledge",
	driven.ConfigServerTimeout:       int64(30),
	driven.ConfigAuthCookieName:      "session",
	driven.ConfigClientMaxRetries:    int64(3),
	driven.ConfigClientRatePerSecond: 5.0,
	driven.ConfigCacheEnabled:        true,
	driven.ConfigUIExcerptLength:     int64(domain.ExcerptLength),
}

// secretKeys are masked by Display.
var secretKeys = map[string]bool{
	driven.ConfigAuthToken:         true,
	driven.ConfigAuthSessionCookie: true,
}

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is stored in config.toml within the knowctl config directory.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// DefaultConfigDir returns ~/.knowctl.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".knowctl"), nil
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.knowctl/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("load %s: %w", s.filePath, err)
	}

	return s, nil
}

// Get retrieves a configuration value by key, falling back to Defaults.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if val, ok := s.data[key]; ok {
		return val, true
	}
	val, ok := Defaults[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// GetFloat retrieves a numeric configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	b, ok := val.(bool)
	if !ok {
		return false
	}
	return b
}

// Keys returns every stored or defaulted key, sorted.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[string]struct{}, len(s.data)+len(Defaults))
	for k := range s.data {
		keys[k] = struct{}{}
	}
	for k := range Defaults {
		keys[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(keys))
}

// Display renders a value for humans, masking secrets.
func (s *ConfigStore) Display(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}
	str := fmt.Sprint(val)
	if secretKeys[key] && str != "" {
		return "********"
	}
	return str
}

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// SetString parses raw according to the type of the key's default and stores it.
func (s *ConfigStore) SetString(key, raw string) error {
	value, err := ParseValue(key, raw)
	if err != nil {
		return err
	}
	return s.Set(key, value)
}

// ParseValue converts raw to the type of the key's default.
// Keys without a default are stored as strings.
func ParseValue(key, raw string) (any, error) {
	switch Defaults[key].(type) {
	case int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer: %w", key, domain.ErrInvalidInput)
		}
		return n, nil
	case float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number: %w", key, domain.ErrInvalidInput)
		}
		return f, nil
	case bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false: %w", key, domain.ErrInvalidInput)
		}
		return b, nil
	default:
		return raw, nil
	}
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(nestMap(s.data))
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start empty
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// nestMap is the inverse of flattenMap so the file keeps TOML tables.
func nestMap(flat map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := result
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
