package config

import (
	"fmt"
	"os"
)

type Config struct {
	Port        string
	OpenAIKey   string
	DataDir     string
	UploadDir   string
	FFmpegPath  string
	FFprobePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		DataDir:     getEnv("DATA_DIR", "./lectures"),
		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required. Set it as an environment variable or in a .env file:\n  export OPENAI_API_KEY=\"your_key\"")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
