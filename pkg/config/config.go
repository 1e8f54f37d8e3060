// Package config loads the settings of a local replica from a YAML file in
// the data directory, with MERKLELOG_* environment overrides.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	// FileName is the config file inside the data directory.
	FileName = "merklelog.yaml"
	// DefaultDir is the data directory used when none is configured.
	DefaultDir = ".merklelog"
)

// Storage backends.
const (
	StorageSQLite  = "sqlite"
	StorageLevelDB = "leveldb"
	StorageMemory  = "memory"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes one replica.
type Config struct {
	// DataDir holds the config file, keystore and storage. It is not
	// written to the file.
	DataDir string `yaml:"-"`

	LogID    string `yaml:"log_id"`
	Identity string `yaml:"identity"`
	Storage  string `yaml:"storage"`
	// PointerCount is passed to every append.
	PointerCount int      `yaml:"pointer_count"`
	CacheSize    int      `yaml:"cache_size"`
	LogLevel     string   `yaml:"log_level"`
	WriteAccess  []string `yaml:"write_access,omitempty"`
	// DeadlockDetection enables go-deadlock lock checking. DeadlockTimeout
	// is in seconds; 0 uses the smallest timeout the log allows.
	DeadlockDetection bool `yaml:"deadlock_detection"`
	DeadlockTimeout   int  `yaml:"deadlock_timeout,omitempty"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		DataDir:      DefaultDir,
		Identity:     "default",
		Storage:      StorageSQLite,
		PointerCount: 16,
		CacheSize:    1024,
		LogLevel:     "warning",
	}
}

// Load reads the config for the data directory named by MERKLELOG_DIR (or
// DefaultDir), then applies environment overrides. A missing file is not
// an error.
func Load() (Config, error) {
	return LoadDir(envOr("MERKLELOG_DIR", DefaultDir))
}

// LoadDir is Load for an explicit data directory.
func LoadDir(dir string) (Config, error) {
	c := Default()
	c.DataDir = dir

	b, err := ioutil.ReadFile(filepath.Join(dir, FileName))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return c, errors.Wrap(err, "read config")
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, errors.Wrapf(ErrInvalidConfig, "parse %s: %v", FileName, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv() error {
	c.LogID = envOr("MERKLELOG_LOG_ID", c.LogID)
	c.Identity = envOr("MERKLELOG_IDENTITY", c.Identity)
	c.Storage = envOr("MERKLELOG_STORAGE", c.Storage)
	c.LogLevel = envOr("MERKLELOG_LOG_LEVEL", c.LogLevel)
	if v := envOr("MERKLELOG_WRITE", ""); v != "" {
		c.WriteAccess = strings.Split(v, ",")
	}
	if v := envOr("MERKLELOG_DEADLOCK_DETECTION", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "MERKLELOG_DEADLOCK_DETECTION=%q", v)
		}
		c.DeadlockDetection = b
	}
	for _, kv := range []struct {
		key string
		dst *int
	}{
		{"MERKLELOG_POINTER_COUNT", &c.PointerCount},
		{"MERKLELOG_CACHE_SIZE", &c.CacheSize},
		{"MERKLELOG_DEADLOCK_TIMEOUT", &c.DeadlockTimeout},
	} {
		v := envOr(kv.key, "")
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%s=%q", kv.key, v)
		}
		*kv.dst = n
	}
	return nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite, StorageLevelDB, StorageMemory:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown storage %q", c.Storage)
	}
	if c.Identity == "" {
		return errors.Wrap(ErrInvalidConfig, "identity is required")
	}
	if c.PointerCount < 0 {
		return errors.Wrapf(ErrInvalidConfig, "pointer_count %d", c.PointerCount)
	}
	if c.CacheSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "cache_size %d", c.CacheSize)
	}
	if c.DeadlockTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "deadlock_timeout %d", c.DeadlockTimeout)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}

// LockTimeout returns DeadlockTimeout as a duration.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.DeadlockTimeout) * time.Second
}

// Path returns the config file path.
func (c Config) Path() string { return filepath.Join(c.DataDir, FileName) }

// Save writes c to its data directory, creating it if needed.
func (c Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return errors.Wrapf(err, "cannot create %s", c.DataDir)
	}
	b, err := yaml.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(ioutil.WriteFile(c.Path(), b, 0644), "write config")
}

// Exists reports whether the config file is present.
func (c Config) Exists() bool {
	_, err := os.Stat(c.Path())
	return err == nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
