// Package download fetches remote audio into temporary files.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Download errors
var (
	ErrTooLarge        = errors.New("remote file too large")
	ErrNotAudio        = errors.New("remote file is not audio")
	ErrUnsupportedURL  = errors.New("unsupported URL")
	ErrUnexpectedReply = errors.New("unexpected HTTP status")
)

// Options configures the download behavior
type Options struct {
	TempDir       string        // Directory for temporary files
	MaxSize       int64         // Maximum file size in bytes (0 = no limit)
	Timeout       time.Duration // Whole-request timeout
	UserAgent     string
	ValidateAudio bool // Reject responses whose Content-Type is not audio
	Progress      ProgressFunc
}

// ProgressFunc is called during download to report progress
type ProgressFunc func(downloaded, total int64)

// DefaultOptions returns default download options
func DefaultOptions() Options {
	return Options{
		TempDir:       os.TempDir(),
		MaxSize:       500 * 1024 * 1024,
		Timeout:       5 * time.Minute,
		UserAgent:     "VoxScript/1.0",
		ValidateAudio: true,
	}
}

// Result describes a finished download
type Result struct {
	FilePath      string
	ContentType   string
	ContentLength int64
}

// Downloader fetches remote audio files to temporary storage
type Downloader struct {
	client  *http.Client
	options Options
	logger  zerolog.Logger
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options Options, logger zerolog.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
		logger:  logger,
	}
}

// IsURL reports whether ref is an http or https URL
func IsURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch downloads rawURL into a new temp file. The caller removes it.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if !IsURL(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
	d.logger.Debug().Str("url", rawURL).Msg("Starting download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.options.UserAgent)
	req.Header.Set("Accept", "audio/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedReply, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if d.options.ValidateAudio && !isAudioContentType(contentType) {
		return nil, fmt.Errorf("%w: content type %q", ErrNotAudio, contentType)
	}
	if d.options.MaxSize > 0 && resp.ContentLength > d.options.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, resp.ContentLength, d.options.MaxSize)
	}

	file, err := os.CreateTemp(d.options.TempDir, "voxscript_download_*"+audioExtension(rawURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := file.Name()

	written, err := d.copy(file, resp.Body, resp.ContentLength)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	d.logger.Debug().Int64("bytes", written).Str("path", tempPath).Msg("Download finished")
	return &Result{FilePath: tempPath, ContentType: contentType, ContentLength: written}, nil
}

// copy writes body to dst, failing once MaxSize is exceeded. Servers that
// omit Content-Length are caught here.
func (d *Downloader) copy(dst io.Writer, body io.Reader, total int64) (int64, error) {
	reader := body
	if d.options.Progress != nil && total > 0 {
		reader = &progressReader{reader: body, total: total, callback: d.options.Progress}
	}
	if d.options.MaxSize <= 0 {
		return io.Copy(dst, reader)
	}

	written, err := io.Copy(dst, io.LimitReader(reader, d.options.MaxSize+1))
	if err != nil {
		return written, fmt.Errorf("failed to download: %w", err)
	}
	if written > d.options.MaxSize {
		return written, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.options.MaxSize)
	}
	return written, nil
}

// isAudioContentType checks if content type is audio
func isAudioContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "audio/") ||
		contentType == "application/octet-stream" // Some servers use this for audio
}

// audioExtension keeps a known audio extension from the URL path so the
// decoder can sniff the container
func audioExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	switch ext {
	case "mp3", "m4a", "aac", "ogg", "wav", "flac", "opus", "webm":
		return "." + ext
	}
	return ""
}

// progressReader wraps a reader to report progress
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		pr.callback(pr.downloaded, pr.total)
	}
	return n, err
}
