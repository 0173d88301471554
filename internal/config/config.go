// Package config loads the engine's run configuration, adapted from the
// teacher's viper-based Load/LoadConfig pattern
// (zjy-dev-de-fuzz/internal/config/config.go): same config-path search
// order, the same ${VAR}/$VAR environment-variable resolution helper, and
// the same .env loader, generalized from LLM/ISA/strategy fields to the
// mutation engine's own knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds the top-level configuration for one engine run.
type Config struct {
	// OperatorGroups selects the mutation-operator groups or individual
	// operator IDs to enable (spec.md §4.1's named groups). Empty expands
	// to "default" via operator.ExpandGroups.
	OperatorGroups []string `mapstructure:"operator_groups"`

	// Strict promotes object-cache read/write errors, otherwise logged as
	// warnings, to fatal. Other warnings the engine logs (such as a test
	// that does not pass during the reachability run) are not promoted.
	Strict bool `mapstructure:"strict"`

	// MaxDistance bounds call-graph reachability (spec.md §4.4).
	MaxDistance int `mapstructure:"max_distance"`

	// Workers is the task executor's worker-pool size; 0 means hardware
	// concurrency (spec.md §4.7).
	Workers int `mapstructure:"workers"`

	// CacheDir roots the on-disk object-cache tier (spec.md §4.5). Empty
	// disables the disk tier; the in-memory tier is always active.
	CacheDir string `mapstructure:"cache_dir"`

	// SandboxTimeoutMs is the per-test timeout enforced by the fork
	// sandbox (spec.md §4.6).
	SandboxTimeoutMs int `mapstructure:"sandbox_timeout_ms"`

	// LogLevel/LogDir configure the package-level logger.
	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`

	// Toolchain names the compile/link command-template files consumed
	// by internal/toolchain.GCC.
	Toolchain ToolchainConfig `mapstructure:"toolchain"`

	// Junk configures the optional junk-detector collaborator (spec.md
	// §6's isJunk external collaborator).
	Junk JunkConfig `mapstructure:"junk"`
}

// ToolchainConfig names the compiler/linker command templates.
type ToolchainConfig struct {
	CompileCommandPath string `mapstructure:"compile_command_path"`
	LinkCommandPath    string `mapstructure:"link_command_path"`
}

// JunkConfig selects and parameterizes a junk-detector implementation.
// Options holds arbitrary per-implementation settings (e.g. deny-flags
// for internal/junk.CompileFlagsAware), mirroring the teacher's
// OracleConfig.Options shape for the same reason: the core doesn't know
// the concrete junk-detector's configuration surface.
type JunkConfig struct {
	Type    string                 `mapstructure:"type"`
	Options map[string]interface{} `mapstructure:"options"`
}

// DenyFlags coerces Options["deny_flags"] to a []string using
// github.com/spf13/cast, the same coercion library the teacher's fuzz
// config leaned on for loosely-typed YAML values.
func (j JunkConfig) DenyFlags() []string {
	raw, ok := j.Options["deny_flags"]
	if !ok {
		return nil
	}
	flags, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil
	}
	return flags
}

// envVarPattern matches environment variable placeholders: ${VAR_NAME} or $VAR_NAME
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// resolveEnvVars replaces environment variable placeholders in a string
// with their values. Unset variables are left as-is.
func resolveEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match
		if strings.HasPrefix(match, "${") && strings.HasSuffix(match, "}") {
			varName = match[2 : len(match)-1]
		} else if strings.HasPrefix(match, "$") {
			varName = match[1:]
		}
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match
	})
}

// LoadEnvFromDotEnv loads KEY=value pairs from a .env file in dir. The
// file is optional; a missing file is not an error.
func LoadEnvFromDotEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(envPath)
	if err != nil {
		return fmt.Errorf("failed to read .env file: %w", err)
	}

	for lineNum, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return fmt.Errorf("invalid line in .env file at line %d: missing '='", lineNum+1)
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
			value = value[1 : len(value)-1]
		} else if strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
			value = value[1 : len(value)-1]
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

// applyEnvResolution resolves environment-variable placeholders across
// every string value viper has loaded, then re-seeds v with the resolved
// settings in place.
func applyEnvResolution(v *viper.Viper) {
	settings := v.AllSettings()
	resolveInMap(settings)
	for key, value := range settings {
		v.Set(key, value)
	}
}

func resolveInMap(m map[string]interface{}) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if resolved := resolveEnvVars(val); resolved != val {
				m[k] = resolved
			}
		case map[string]interface{}:
			resolveInMap(val)
		case []interface{}:
			resolveInSlice(val)
		}
	}
}

func resolveInSlice(s []interface{}) {
	for i, v := range s {
		switch val := v.(type) {
		case string:
			s[i] = resolveEnvVars(val)
		case map[string]interface{}:
			resolveInMap(val)
		}
	}
}

// configPaths is the fixed search order every viper instance in this
// package uses, matching the teacher's multi-path lookup so tests running
// from a nested package directory still find "configs/".
var configPaths = []string{"configs", "../configs", "../../configs"}

func newViper(name string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	return v
}

// Load reads "configFileName.yaml" from the configs search path and
// unmarshals it into cfg, applying ${VAR} environment-variable
// resolution first.
func Load(configFileName string, cfg *Config) error {
	if err := LoadEnvFromDotEnv("."); err != nil {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	v := newViper(configFileName)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	applyEnvResolution(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	applyDefaults(cfg)
	return nil
}

// LoadConfig loads the engine's main "config.yaml" with defaults applied,
// equivalent to Load("config", &cfg) plus applyDefaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := Load("config", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.OperatorGroups) == 0 {
		cfg.OperatorGroups = []string{"default"}
	}
	if cfg.MaxDistance == 0 {
		cfg.MaxDistance = 10
	}
	if cfg.SandboxTimeoutMs == 0 {
		cfg.SandboxTimeoutMs = 5000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	if cfg.Junk.Type == "" {
		cfg.Junk.Type = "allow_all"
	}
}

// Watch wraps viper.WatchConfig (backed by github.com/fsnotify/fsnotify)
// so callers can react to a config file changing on disk mid-run without
// polling. onChange receives the freshly reloaded Config; errors re-
// reading the file are logged by viper itself and leave cfg unchanged.
func Watch(configFileName string, onChange func(Config)) error {
	v := newViper(configFileName)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		applyEnvResolution(v)
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		applyDefaults(&cfg)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
