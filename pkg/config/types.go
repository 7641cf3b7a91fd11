package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Extraction   ExtractionConfig   `mapstructure:"extraction"`
	Input        InputConfig        `mapstructure:"input"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Whisper      WhisperConfig      `mapstructure:"whisper"`
	Coordinator  CoordinatorConfig  `mapstructure:"coordinator"`
	RateLimiting RateLimitConfig    `mapstructure:"rate_limiting"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// StorageConfig contains temp file and archive settings
type StorageConfig struct {
	TempDir         string        `mapstructure:"temp_dir"`
	Archive         string        `mapstructure:"archive"` // "sqlite" or "badger"
	BadgerPath      string        `mapstructure:"badger_path"`
	DocumentKey     string        `mapstructure:"document_key"`
	MaxTempAge      time.Duration `mapstructure:"max_temp_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ExtractionConfig contains settings for the resample-to-WAV step
type ExtractionConfig struct {
	ChunkSize  int    `mapstructure:"chunk_size"`
	TempPrefix string `mapstructure:"temp_prefix"`
}

// InputConfig controls which audio references sources can be opened from
type InputConfig struct {
	FFmpegPath      string        `mapstructure:"ffmpeg_path"`
	FFprobePath     string        `mapstructure:"ffprobe_path"`
	DecodeTimeout   time.Duration `mapstructure:"decode_timeout"`
	MaxDuration     time.Duration `mapstructure:"max_duration"`
	AllowRemote     bool          `mapstructure:"allow_remote"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	MaxDownloadSize int64         `mapstructure:"max_download_size"`
}

// QueueConfig contains transcription queue settings
type QueueConfig struct {
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	RecordHistory    bool          `mapstructure:"record_history"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

// WhisperConfig contains whisper.cpp CLI settings
type WhisperConfig struct {
	CLIPath       string `mapstructure:"cli_path"`
	ModelPath     string `mapstructure:"model_path"`
	Language      string `mapstructure:"language"`
	Threads       int    `mapstructure:"threads"`
	MinTextLength int    `mapstructure:"min_text_length"`
}

// CoordinatorConfig contains lifecycle coordination settings
type CoordinatorConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	AutoSave        bool          `mapstructure:"auto_save"`
	LoadOnStart     bool          `mapstructure:"load_on_start"`
	DeferExtraction bool          `mapstructure:"defer_extraction"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	RPS     int  `mapstructure:"rps"`
	Burst   int  `mapstructure:"burst"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
