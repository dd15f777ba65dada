package config

import "errors"

const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 5001
	DefaultMaxWorkers       = 0
	DefaultHistoryQueueSize = 64
	DefaultMaxBodyBytes     = 100 << 10

	DefaultOutfieldScript   = "./scripts/predict_outfield.py"
	DefaultGoalkeeperScript = "./scripts/predict_gk.py"
)

var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"https://fifa-prediction.vercel.app",
	"https://*.vercel.app",
}

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidPort        = errors.New("invalid port")
	ErrInvalidEnvironment = errors.New("invalid environment")
	ErrScriptNotSet       = errors.New("inference script path is not set")
	ErrInvalidMaxWorkers  = errors.New("inference max workers must not be negative")
	ErrInvalidTimeout     = errors.New("inference timeout must not be negative")
	ErrInvalidBodyLimit   = errors.New("server max body bytes must be at least 1")
	ErrInvalidQueueSize   = errors.New("history queue size must be at least 1")
)
