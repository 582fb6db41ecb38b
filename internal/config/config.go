package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	CacheDir   string `toml:"cache_dir"`
}

// Render contains caption styling applied to every frame.
type Render struct {
	Font             string  `toml:"font"`
	FontSize         float64 `toml:"font_size"`
	DPI              float64 `toml:"dpi"`
	OutlineThickness int     `toml:"outline_thickness"`
	BottomOffset     int     `toml:"bottom_offset"`
	FillColor        string  `toml:"fill_color"`
	OutlineColor     string  `toml:"outline_color"`
	ExcessPolicy     string  `toml:"excess_policy"`
}

// Videos maps background video types to clip paths.
type Videos struct {
	DefaultType string            `toml:"default_type"`
	Clips       map[string]string `toml:"clips"`
}

// Transcription contains configuration for the word timestamp source.
type Transcription struct {
	Provider        string `toml:"provider"`
	Model           string `toml:"model"`
	Language        string `toml:"language"`
	CUDAEnabled     bool   `toml:"cuda"`
	VADMethod       string `toml:"vad_method"`
	HuggingFace     string `toml:"hf_token"`
	APIURL          string `toml:"api_url"`
	APIKey          string `toml:"api_key"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	CacheEnabled    bool   `toml:"cache_enabled"`
	CacheMaxAgeDays int    `toml:"cache_max_age_days"`
}

// FFmpeg contains encoder binaries and settings.
type FFmpeg struct {
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	FFprobeBinary       string `toml:"ffprobe_binary"`
	CRF                 int    `toml:"crf"`
	Preset              string `toml:"preset"`
	StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for visiogen.
//
// Configuration sections by subsystem:
//   - Paths: scratch, output, log, and cache directories
//   - Render: caption font, size, colours, and placement
//   - Fonts: font id to font file mapping
//   - Videos: background clips selected by video type
//   - Transcription: WhisperX or Whisper API settings plus transcript cache
//   - FFmpeg: binaries, encoder quality, and per-stage timeout
//   - Logging: log format and level
type Config struct {
	Paths         Paths             `toml:"paths"`
	Render        Render            `toml:"render"`
	Fonts         map[string]string `toml:"fonts"`
	Videos        Videos            `toml:"videos"`
	Transcription Transcription     `toml:"transcription"`
	FFmpeg        FFmpeg            `toml:"ffmpeg"`
	Logging       Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/visiogen/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("visiogen.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WorkDir returns the fixed scratch workspace used by a single run.
func (c *Config) WorkDir() string {
	return filepath.Join(c.Paths.ScratchDir, "work")
}

// LockPath returns the file guarding the scratch workspace.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.ScratchDir, "visiogen.lock")
}

// TranscriptCachePath returns the sqlite database used to cache word timings.
func (c *Config) TranscriptCachePath() string {
	return filepath.Join(c.Paths.CacheDir, "transcripts.db")
}

// WhisperXCacheDir returns the model cache directory handed to WhisperX.
func (c *Config) WhisperXCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "whisperx")
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.FFmpeg.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.FFmpeg.FFprobeBinary); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// StageTimeout returns the deadline applied to each external ffmpeg stage.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.FFmpeg.StageTimeoutSeconds) * time.Second
}

// TranscriptionTimeout returns the deadline applied to the timestamp source.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// TranscriptCacheMaxAge returns how long cached transcripts stay valid.
// Zero disables pruning.
func (c *Config) TranscriptCacheMaxAge() time.Duration {
	return time.Duration(c.Transcription.CacheMaxAgeDays) * 24 * time.Hour
}

// VideoClip resolves a video type to its configured background clip.
// An empty type selects Videos.DefaultType.
func (c *Config) VideoClip(videoType string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(videoType))
	if key == "" {
		key = c.Videos.DefaultType
	}
	path, ok := c.Videos.Clips[key]
	if !ok || strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("video type %q has no clip configured (known: %s)", key, strings.Join(c.VideoTypes(), ", "))
	}
	return path, nil
}

// VideoTypes lists configured video types in sorted order.
func (c *Config) VideoTypes() []string {
	types := make([]string, 0, len(c.Videos.Clips))
	for key := range c.Videos.Clips {
		types = append(types, key)
	}
	sort.Strings(types)
	return types
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the config as TOML, with secrets masked.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	if masked.Transcription.APIKey != "" {
		masked.Transcription.APIKey = "********"
	}
	if masked.Transcription.HuggingFace != "" {
		masked.Transcription.HuggingFace = "********"
	}
	data, err := toml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
