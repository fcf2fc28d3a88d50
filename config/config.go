// Package config handles cubescript.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/cubescript/vm"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "cubescript.toml"

// Config represents a cubescript.toml file.
type Config struct {
	Runtime Runtime           `toml:"runtime"`
	Log     Log               `toml:"log"`
	Exec    Exec              `toml:"exec"`
	Persist Persist           `toml:"persist"`
	Vars    map[string]string `toml:"vars"`

	// Dir is the directory containing the cubescript.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the interpreter.
type Runtime struct {
	MaxRunDepth int  `toml:"max-run-depth"`
	Trace       bool `toml:"trace"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Exec lists scripts run at startup, in order.
type Exec struct {
	Autoexec []string `toml:"autoexec"`
}

// Persist configures where persistent identifiers are written.
type Persist struct {
	Config   string `toml:"config"`
	Database string `toml:"database"`
}

// Default returns the configuration used when no file is found.
func Default(dir string) *Config {
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Runtime.MaxRunDepth <= 0 {
		c.Runtime.MaxRunDepth = vm.MaxRunDepth
	}
	if c.Log.Verbosity == 0 {
		c.Log.Verbosity = 1
	}
}

// Load parses a cubescript.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a cubescript.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// resolve makes p absolute against the config directory.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ExecPaths returns absolute paths for the autoexec scripts.
func (c *Config) ExecPaths() []string {
	var paths []string
	for _, p := range c.Exec.Autoexec {
		paths = append(paths, c.resolve(p))
	}
	return paths
}

// ConfigPath returns the absolute path of the persisted config script, or "".
func (c *Config) ConfigPath() string {
	return c.resolve(c.Persist.Config)
}

// DatabasePath returns the absolute path of the snapshot database, or "".
func (c *Config) DatabasePath() string {
	return c.resolve(c.Persist.Database)
}

// LogPath returns the absolute path of the log file, or "" for stderr.
func (c *Config) LogPath() string {
	return c.resolve(c.Log.Path)
}

// Apply configures in: engine limits, the exec directory and the [vars]
// presets, which are written in name order like script assignments.
func (c *Config) Apply(in *vm.Interp) error {
	in.MaxRunDepth = c.Runtime.MaxRunDepth
	in.Trace = c.Runtime.Trace
	in.Dir = c.Dir

	names := make([]string, 0, len(c.Vars))
	for name := range c.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := in.Set(name, vm.Str(c.Vars[name])); err != nil {
			return fmt.Errorf("%s: [vars] %w", FileName, err)
		}
	}
	return nil
}
