package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	ModelPath     string  // detection model weights
	NetConfigPath string  // optional network config next to the weights
	ConfThreshold float64 // detector confidence cutoff
	Padding       int     // pixels added around each redacted box
	MaxAge        int     // frames a track survives without a detection
	IoUThreshold  float64 // minimum IoU to match detection to track
	SmoothFactor  float64 // EMA weight of the previous box
	OutputDir     string  // default directory for censored videos
	DBPath        string  // run report database; empty disables recording
	LogDirectory  string
}

func Load() *Config {
	return &Config{
		ModelPath:     getEnv("MODEL_PATH", filepath.Join(".", "models", "license_plate_detector.pb")),
		NetConfigPath: getEnv("NET_CONFIG_PATH", ""),
		ConfThreshold: getEnvAsFloat("CONF_THRESHOLD", 0.15),
		Padding:       getEnvAsInt("PADDING", 5),
		MaxAge:        getEnvAsInt("MAX_AGE", 5),
		IoUThreshold:  getEnvAsFloat("IOU_THRESHOLD", 0.3),
		SmoothFactor:  getEnvAsFloat("SMOOTH_FACTOR", 0.7),
		OutputDir:     getEnv("OUTPUT_DIR", filepath.Join(".", "outputs")),
		DBPath:        getEnv("DB_PATH", ""),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
