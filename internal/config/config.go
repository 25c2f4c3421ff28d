package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the demo simulation binary.
// The simulation core itself is configured through constructors only.
type Config struct {
	LogLevel     string
	Duration     time.Duration
	TickInterval time.Duration
	InitialCash  float64
	DepthLevels  int
	Seed         int64
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	duration, err := getDuration("SIM_DURATION", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SIM_DURATION: %w", err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("invalid SIM_DURATION: must be positive")
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if tickInterval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: must be positive")
	}

	initialCash, err := getFloat("INITIAL_CASH", 100000)
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_CASH: %w", err)
	}
	if initialCash < 0 {
		return nil, fmt.Errorf("invalid INITIAL_CASH: must not be negative")
	}

	depthLevels, err := getInt("DEPTH_LEVELS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DEPTH_LEVELS: %w", err)
	}
	if depthLevels <= 0 {
		return nil, fmt.Errorf("invalid DEPTH_LEVELS: must be positive")
	}

	seed, err := getInt64("SEED", time.Now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("invalid SEED: %w", err)
	}

	return &Config{
		LogLevel:     logLevel,
		Duration:     duration,
		TickInterval: tickInterval,
		InitialCash:  initialCash,
		DepthLevels:  depthLevels,
		Seed:         seed,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
