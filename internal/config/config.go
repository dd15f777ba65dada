package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cozy-creator/player-predictor/internal/utils/pathutil"
	"github.com/cozy-creator/player-predictor/tools"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

const envPrefix = "PREDICTOR"

type Config struct {
	Port        int             `mapstructure:"port"`
	Host        string          `mapstructure:"host"`
	Environment string          `mapstructure:"environment"`
	PublicDir   string          `mapstructure:"public_dir"`
	Server      ServerConfig    `mapstructure:"server"`
	CORS        CORSConfig      `mapstructure:"cors"`
	Inference   InferenceConfig `mapstructure:"inference"`
	Schema      SchemaConfig    `mapstructure:"schema"`
	DB          DBConfig        `mapstructure:"db"`
	History     HistoryConfig   `mapstructure:"history"`
}

type ServerConfig struct {
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type InferenceConfig struct {
	PythonBin        string        `mapstructure:"python_bin"`
	OutfieldScript   string        `mapstructure:"outfield_script"`
	GoalkeeperScript string        `mapstructure:"goalkeeper_script"`
	MaxWorkers       int           `mapstructure:"max_workers"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type SchemaConfig struct {
	Strict          bool `mapstructure:"strict"`
	DeriveFaceStats bool `mapstructure:"derive_face_stats"`
}

type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Debug bool   `mapstructure:"debug"`
}

type HistoryConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

var config *Config

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("public_dir", "")
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("cors.allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("inference.python_bin", tools.DefaultPythonCommand())
	v.SetDefault("inference.outfield_script", DefaultOutfieldScript)
	v.SetDefault("inference.goalkeeper_script", DefaultGoalkeeperScript)
	v.SetDefault("inference.max_workers", DefaultMaxWorkers)
	v.SetDefault("inference.timeout", time.Duration(0))
	v.SetDefault("schema.strict", false)
	v.SetDefault("schema.derive_face_stats", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.debug", false)
	v.SetDefault("history.queue_size", DefaultHistoryQueueSize)
}

// BindEnvs wires environment variables onto v. Every key is available as
// PREDICTOR_<KEY>; port and environment also honour the unprefixed names
// hosting platforms set.
func BindEnvs(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(
		`-`, `_`,
		`.`, `_`,
	))
	v.AutomaticEnv()

	v.BindEnv("port", envPrefix+"_PORT", "PORT")
	v.BindEnv("environment", envPrefix+"_ENVIRONMENT", "ENVIRONMENT", "NODE_ENV")
	v.BindEnv("server.max_body_bytes")
	v.BindEnv("cors.allowed_origins")
	v.BindEnv("inference.python_bin")
	v.BindEnv("inference.outfield_script")
	v.BindEnv("inference.goalkeeper_script")
	v.BindEnv("inference.max_workers")
	v.BindEnv("inference.timeout")
	v.BindEnv("schema.strict")
	v.BindEnv("schema.derive_face_stats")
	v.BindEnv("db.dsn")
	v.BindEnv("db.debug")
	v.BindEnv("history.queue_size")
}

// LoadEnvAndConfigFiles loads the optional .env file into the process
// environment and points v at the optional YAML config file.
func LoadEnvAndConfigFiles(v *viper.Viper) error {
	envFile := v.GetString("env_file")
	if envFile != "" {
		envFile, err := pathutil.ExpandPath(envFile)
		if err != nil {
			return fmt.Errorf("failed to expand env file path: %w", err)
		}

		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	configFile := v.GetString("config_file")
	if configFile == "" {
		return nil
	}

	configFile, err := pathutil.ExpandPath(configFile)
	if err != nil {
		return fmt.Errorf("failed to expand config file path: %w", err)
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrConfigFileNotFound, configFile)
		}

		return fmt.Errorf("error reading config: %w", err)
	}

	return nil
}

// LoadConfig decodes v into a Config, resolves the script paths and
// validates the result.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// comma separated env values arrive as a single element
	if len(cfg.CORS.AllowedOrigins) == 1 && strings.Contains(cfg.CORS.AllowedOrigins[0], ",") {
		cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins[0])
	}

	var err error
	if cfg.Inference.OutfieldScript, err = pathutil.ResolvePath(cfg.Inference.OutfieldScript); err != nil {
		return nil, fmt.Errorf("failed to resolve outfield script path: %w", err)
	}
	if cfg.Inference.GoalkeeperScript, err = pathutil.ResolvePath(cfg.Inference.GoalkeeperScript); err != nil {
		return nil, fmt.Errorf("failed to resolve goalkeeper script path: %w", err)
	}
	if cfg.PublicDir, err = pathutil.ResolvePath(cfg.PublicDir); err != nil {
		return nil, fmt.Errorf("failed to resolve public dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEnvironment, c.Environment)
	}

	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidBodyLimit, c.Server.MaxBodyBytes)
	}

	if c.Inference.OutfieldScript == "" || c.Inference.GoalkeeperScript == "" {
		return ErrScriptNotSet
	}
	if c.Inference.MaxWorkers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxWorkers, c.Inference.MaxWorkers)
	}
	if c.Inference.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Inference.Timeout)
	}
	if c.History.QueueSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQueueSize, c.History.QueueSize)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) HistoryEnabled() bool {
	return c.DB.DSN != ""
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func GetConfig() *Config {
	if config == nil {
		panic("config not loaded")
	}

	return config
}

func SetConfig(c *Config) {
	if c == nil {
		panic("config is nil")
	}

	config = c
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
