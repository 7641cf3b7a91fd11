package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty working directory so no stray
// settings.yaml or .env leaks in.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		viper.Reset()
	})
	viper.Reset()
	return dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string)
		wantErr bool
		check   func(t *testing.T)
	}{
		{
			name:  "missing config file uses defaults",
			setup: func(t *testing.T, dir string) {},
			check: func(t *testing.T) {
				assert.Equal(t, 8080, GetInt("server.port"))
				assert.Equal(t, "sqlite", GetString("storage.archive"))
				assert.Equal(t, 8192, GetInt("extraction.chunk_size"))
				assert.Equal(t, 4*time.Second, GetDuration("queue.shutdown_timeout"))
				assert.Equal(t, "voxscript_", GetString("extraction.temp_prefix"))
			},
		},
		{
			name: "settings.yaml is read",
			setup: func(t *testing.T, dir string) {
				content := `
server:
  port: 9191
storage:
  archive: badger
whisper:
  language: de
`
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "settings.yaml"), []byte(content), 0644))
			},
			check: func(t *testing.T) {
				assert.Equal(t, 9191, GetInt("server.port"))
				assert.Equal(t, "badger", GetString("storage.archive"))
				assert.Equal(t, "de", GetString("whisper.language"))
			},
		},
		{
			name: "environment variable override",
			setup: func(t *testing.T, dir string) {
				t.Setenv("VOXSCRIPT_SERVER_PORT", "9090")
			},
			check: func(t *testing.T) {
				assert.Equal(t, 9090, GetInt("server.port"))
			},
		},
		{
			name: ".env file is loaded",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VOXSCRIPT_WHISPER_THREADS=8\n"), 0644))
				t.Cleanup(func() { os.Unsetenv("VOXSCRIPT_WHISPER_THREADS") })
			},
			check: func(t *testing.T) {
				assert.Equal(t, 8, GetInt("whisper.threads"))
			},
		},
		{
			name: "unknown archive backend is rejected",
			setup: func(t *testing.T, dir string) {
				t.Setenv("VOXSCRIPT_STORAGE_ARCHIVE", "postgres")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := inTempDir(t)
			tt.setup(t, dir)

			err := load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			if tt.check != nil {
				tt.check(t)
			}
		})
	}
}

func TestGetConfig(t *testing.T) {
	inTempDir(t)
	require.NoError(t, load())

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ggml-base.en.bin", filepath.Base(cfg.Whisper.ModelPath))
	assert.Equal(t, 2, cfg.Whisper.MinTextLength)
	assert.True(t, cfg.Queue.RecordHistory)
	assert.Equal(t, 30*24*time.Hour, cfg.Queue.HistoryRetention)
	assert.Equal(t, "ffmpeg", cfg.Input.FFmpegPath)
	assert.False(t, cfg.Input.AllowRemote)
	assert.Equal(t, int64(500*1024*1024), cfg.Input.MaxDownloadSize)
	assert.True(t, cfg.Coordinator.LoadOnStart)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Server:   ServerConfig{Port: 8080},
				Database: DatabaseConfig{Path: "./data/voxscript.db"},
				Storage:  StorageConfig{Archive: "sqlite"},
			},
		},
		{
			name: "invalid port",
			config: &Config{
				Server:  ServerConfig{Port: 0},
				Storage: StorageConfig{Archive: "sqlite"},
			},
			wantErr: true,
		},
		{
			name: "sqlite archive without database path",
			config: &Config{
				Server:  ServerConfig{Port: 8080},
				Storage: StorageConfig{Archive: "sqlite"},
			},
			wantErr: true,
		},
		{
			name: "badger archive needs no database path",
			config: &Config{
				Server:  ServerConfig{Port: 8080},
				Storage: StorageConfig{Archive: "badger"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 8192, tt.config.Extraction.ChunkSize)
		})
	}
}
