package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		initErr = load()
	})

	return initErr
}

func load() error {
	setDefaults()

	// .env values become process env before viper reads overrides
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	viper.SetEnvPrefix("VOXSCRIPT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configPath := filepath.Clean("./config/settings.yaml")
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	switch backend := viper.GetString("storage.archive"); backend {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("invalid storage.archive %q (want sqlite or badger)", backend)
	}

	if viper.GetInt("extraction.chunk_size") <= 0 {
		viper.Set("extraction.chunk_size", 8192)
	}

	if viper.GetDuration("queue.shutdown_timeout") <= 0 {
		viper.Set("queue.shutdown_timeout", 4*time.Second)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Storage.Archive != "sqlite" && c.Storage.Archive != "badger" {
		return fmt.Errorf("invalid storage.archive %q (want sqlite or badger)", c.Storage.Archive)
	}

	if c.Storage.Archive == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the sqlite archive")
	}

	if c.Extraction.ChunkSize <= 0 {
		c.Extraction.ChunkSize = 8192
	}

	if c.Queue.ShutdownTimeout <= 0 {
		c.Queue.ShutdownTimeout = 4 * time.Second
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/voxscript.db")
	viper.SetDefault("database.verbose", false)

	// Storage defaults
	viper.SetDefault("storage.temp_dir", os.TempDir())
	viper.SetDefault("storage.archive", "sqlite")
	viper.SetDefault("storage.badger_path", "./data/archive")
	viper.SetDefault("storage.document_key", "default")
	viper.SetDefault("storage.max_temp_age", 24*time.Hour)
	viper.SetDefault("storage.cleanup_interval", 1*time.Hour)

	// Extraction defaults
	viper.SetDefault("extraction.chunk_size", 8192)
	viper.SetDefault("extraction.temp_prefix", "voxscript_")

	// Input defaults
	viper.SetDefault("input.ffmpeg_path", "ffmpeg")
	viper.SetDefault("input.ffprobe_path", "ffprobe")
	viper.SetDefault("input.decode_timeout", 5*time.Minute)
	viper.SetDefault("input.max_duration", 4*time.Hour)
	viper.SetDefault("input.allow_remote", false)
	viper.SetDefault("input.download_timeout", 5*time.Minute)
	viper.SetDefault("input.max_download_size", 500*1024*1024)

	// Queue defaults
	viper.SetDefault("queue.shutdown_timeout", 4*time.Second)
	viper.SetDefault("queue.record_history", true)
	viper.SetDefault("queue.history_retention", 30*24*time.Hour)

	// Whisper defaults
	viper.SetDefault("whisper.cli_path", "whisper-cli")
	viper.SetDefault("whisper.model_path", "./models/ggml-base.en.bin")
	viper.SetDefault("whisper.language", "en")
	viper.SetDefault("whisper.threads", 4)
	viper.SetDefault("whisper.min_text_length", 2)

	// Coordinator defaults
	viper.SetDefault("coordinator.poll_interval", 500*time.Millisecond)
	viper.SetDefault("coordinator.auto_save", true)
	viper.SetDefault("coordinator.load_on_start", true)
	viper.SetDefault("coordinator.defer_extraction", false)

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.rps", 20)
	viper.SetDefault("rate_limiting.burst", 40)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}
