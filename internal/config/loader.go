package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SNAKEQL_GRID_ROWS.
const EnvPrefix = "SNAKEQL"

// Loader merges configuration layers.
// Order: embedded default -> ~/.snakeql/config.yaml -> ./configs/snakeql.yaml
// -> customPath -> SNAKEQL_* environment -> bound flags.
type Loader struct {
	v          *viper.Viper
	customPath string
	userPath   string
	localPath  string
	sources    []string
}

// NewLoader creates a loader. customPath, when set, must exist.
func NewLoader(customPath string) *Loader {
	return &Loader{
		v:          viper.New(),
		customPath: customPath,
		userPath:   userConfigPath("config.yaml"),
		localPath:  filepath.Join("configs", "snakeql.yaml"),
	}
}

// BindFlag makes a command-line flag override key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("config: no flag to bind for %s", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("config: cannot bind flag %s: %w", flag.Name, err)
	}
	return nil
}

// Load reads every layer and returns the validated result.
func (l *Loader) Load() (Config, error) {
	var cfg Config

	l.v.SetConfigType("yaml")
	if err := l.v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return cfg, fmt.Errorf("config: cannot parse embedded defaults: %w", err)
	}
	l.sources = []string{"embedded"}

	for _, path := range []string{l.userPath, l.localPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := l.merge(path); err != nil {
			return cfg, err
		}
	}

	if l.customPath != "" {
		if _, err := os.Stat(l.customPath); err != nil {
			return cfg, fmt.Errorf("config: failed to read config %s: %w", l.customPath, err)
		}
		if err := l.merge(l.customPath); err != nil {
			return cfg, err
		}
	}

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: cannot decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Sources lists the layers read by the last Load, lowest priority first.
func (l *Loader) Sources() []string {
	return l.sources
}

func (l *Loader) merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read config %s: %w", path, err)
	}
	if err := l.v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("config: failed to parse config %s: %w", path, err)
	}
	l.sources = append(l.sources, path)
	return nil
}

// userConfigPath returns the path to a user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".snakeql", filename)
}
