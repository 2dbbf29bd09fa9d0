package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"clipper/internal/models"
)

const (
	DefaultConfigFileName = ".clipper.toml"
	DefaultDBFileName     = ".clipper.db"
	DefaultBackendName    = "local"
	DefaultLocalRoot      = "clipper-files"
	DefaultLogLevel       = "info"

	DefaultMaxScratchBytes int64 = 512 * 1024 * 1024
	DefaultFetchTimeout          = 30 * time.Second
	DefaultPruneBatchSize        = 200

	DriverLocal  = "local"
	DriverMemory = "memory"

	configDirEnvKey          = "CLIPPER_CONFIG_DIR"
	trustProjectConfigEnvKey = "CLIPPER_TRUST_PROJECT_CONFIG"
	dbPathEnvKey             = "CLIPPER_DB"
	defaultBackendEnvKey     = "CLIPPER_DEFAULT_BACKEND"
	scratchDirEnvKey         = "CLIPPER_SCRATCH_DIR"
)

// BackendConfig describes one named storage backend.
type BackendConfig struct {
	Driver       string `toml:"driver"`
	Root         string `toml:"root"`
	PublicPrefix string `toml:"public_prefix"`
	Compress     bool   `toml:"compress"`
}

// ProcessorConfig registers one builtin processor. Mimes overrides the
// processor's own mime list when set.
type ProcessorConfig struct {
	Name  string   `toml:"name"`
	Mimes []string `toml:"mimes"`
}

// Config defines runtime configuration for clipper.
type Config struct {
	DBPath                   string                   `toml:"db_path"`
	DefaultBackend           string                   `toml:"default_backend"`
	ScratchDir               string                   `toml:"scratch_dir"`
	MaxScratchBytes          int64                    `toml:"max_scratch_bytes"`
	LogLevel                 string                   `toml:"log_level"`
	PresetsPath              string                   `toml:"presets_path"`
	FetchTimeout             time.Duration            `toml:"fetch_timeout"`
	PruneBatchSize           int                      `toml:"prune_batch_size"`
	Backends                 map[string]BackendConfig `toml:"backends"`
	Processors               []ProcessorConfig        `toml:"processors"`
	TrustedProjectConfigPath string                   `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		DBPath:          "",
		DefaultBackend:  DefaultBackendName,
		MaxScratchBytes: DefaultMaxScratchBytes,
		LogLevel:        DefaultLogLevel,
		FetchTimeout:    DefaultFetchTimeout,
		PruneBatchSize:  DefaultPruneBatchSize,
	}
}

// DefaultBackends is used when no [backends] table is configured.
func DefaultBackends() map[string]BackendConfig {
	return map[string]BackendConfig{
		DefaultBackendName: {Driver: DriverLocal, Root: DefaultLocalRoot},
	}
}

// DefaultProcessors mirrors the stock pipeline: rotation before resizing.
func DefaultProcessors() []ProcessorConfig {
	return []ProcessorConfig{{Name: "fix_rotation"}, {Name: "resize"}}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, DefaultConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"db_path",
	"default_backend",
	"scratch_dir",
	"max_scratch_bytes",
	"log_level",
	"presets_path",
	"fetch_timeout",
	"prune_batch_size",
}

var backendFields = []string{"driver", "root", "public_prefix", "compress"}

// AllowedKeys returns the set of valid config keys. Backend keys take the
// form backends.<name>.<field>.
func AllowedKeys() []string {
	keys := append([]string{}, allowedKeys...)
	for _, field := range backendFields {
		keys = append(keys, "backends.<name>."+field)
	}
	return keys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	_, _, ok := splitBackendKey(key)
	return ok
}

func splitBackendKey(key string) (name, field string, ok bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "backends" || strings.TrimSpace(parts[1]) == "" {
		return "", "", false
	}
	for _, f := range backendFields {
		if parts[2] == f {
			return parts[1], f, true
		}
	}
	return "", "", false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "db_path":
		return c.DBPath, nil
	case "default_backend":
		return c.DefaultBackend, nil
	case "scratch_dir":
		return c.ScratchDir, nil
	case "max_scratch_bytes":
		return strconv.FormatInt(c.MaxScratchBytes, 10), nil
	case "log_level":
		return c.LogLevel, nil
	case "presets_path":
		return c.PresetsPath, nil
	case "fetch_timeout":
		return c.FetchTimeout.String(), nil
	case "prune_batch_size":
		return strconv.Itoa(c.PruneBatchSize), nil
	}

	name, field, ok := splitBackendKey(key)
	if !ok {
		return "", fmt.Errorf("unknown key: %s", key)
	}
	backend, exists := c.Backends[name]
	if !exists {
		return "", fmt.Errorf("unknown backend: %s", name)
	}
	switch field {
	case "driver":
		return backend.Driver, nil
	case "root":
		return backend.Root, nil
	case "public_prefix":
		return backend.PublicPrefix, nil
	default:
		return strconv.FormatBool(backend.Compress), nil
	}
}

// BackendNames returns the configured backend names in sorted order.
func (c *Config) BackendNames() []string {
	names := make([]string, 0, len(c.Backends))
	for name := range c.Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, DefaultConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, DefaultConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if backend := strings.TrimSpace(os.Getenv(defaultBackendEnvKey)); backend != "" {
		cfg.DefaultBackend = backend
	}
	if scratch := strings.TrimSpace(os.Getenv(scratchDirEnvKey)); scratch != "" {
		cfg.ScratchDir = scratch
	}

	cfg.normalize()

	return &cfg, nil
}

// Validate checks the backend and processor tables.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("no backends configured")
	}
	for _, name := range c.BackendNames() {
		backend := c.Backends[name]
		switch backend.Driver {
		case DriverLocal:
			if strings.TrimSpace(backend.Root) == "" {
				return fmt.Errorf("backend %q: root is required for the local driver", name)
			}
		case DriverMemory:
		default:
			return fmt.Errorf("backend %q: unknown driver %q", name, backend.Driver)
		}
	}
	if _, ok := c.Backends[c.DefaultBackend]; !ok {
		return fmt.Errorf("default backend %q is not configured", c.DefaultBackend)
	}
	for i, proc := range c.Processors {
		if strings.TrimSpace(proc.Name) == "" {
			return fmt.Errorf("processor %d: name is required", i)
		}
		for _, raw := range proc.Mimes {
			if raw == "*" || raw == "*/*" || strings.HasSuffix(raw, "/*") {
				continue
			}
			if _, err := models.NormalizeMimeType(raw); err != nil {
				return fmt.Errorf("processor %q: %w", proc.Name, err)
			}
		}
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	if _, field, ok := splitBackendKey(key); ok && field == "compress" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	}
	switch key {
	case "max_scratch_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "prune_batch_size":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "fetch_timeout":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration such as 30s", key)
		}
		return parsed.String(), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.DefaultBackend) == "" {
		c.DefaultBackend = DefaultBackendName
	}
	if c.MaxScratchBytes <= 0 {
		c.MaxScratchBytes = DefaultMaxScratchBytes
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.PruneBatchSize <= 0 {
		c.PruneBatchSize = DefaultPruneBatchSize
	}
	if len(c.Backends) == 0 {
		c.Backends = DefaultBackends()
	}
	for name, backend := range c.Backends {
		backend.Driver = strings.ToLower(strings.TrimSpace(backend.Driver))
		if backend.Driver == "" {
			backend.Driver = DriverLocal
		}
		c.Backends[name] = backend
	}
	if c.Processors == nil {
		c.Processors = DefaultProcessors()
	}
}
