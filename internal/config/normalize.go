package config

import (
	"fmt"
	"os"
	"strings"

	"visiogen/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	if err := c.normalizeFonts(); err != nil {
		return err
	}
	if err := c.normalizeVideos(); err != nil {
		return err
	}
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.Font = strings.ToLower(strings.TrimSpace(c.Render.Font))
	if c.Render.Font == "" {
		c.Render.Font = defaultFont
	}
	if c.Render.DPI == 0 {
		c.Render.DPI = defaultDPI
	}
	c.Render.FillColor = strings.TrimSpace(c.Render.FillColor)
	if c.Render.FillColor == "" {
		c.Render.FillColor = defaultFillColor
	}
	c.Render.ExcessPolicy = strings.ToLower(strings.TrimSpace(c.Render.ExcessPolicy))
	if c.Render.ExcessPolicy == "" {
		c.Render.ExcessPolicy = defaultExcessPolicy
	}
	c.Render.OutlineColor = strings.TrimSpace(c.Render.OutlineColor)
	if c.Render.OutlineColor == "" {
		c.Render.OutlineColor = defaultOutlineColor
	}
}

func (c *Config) normalizeFonts() error {
	if len(c.Fonts) == 0 {
		c.Fonts = map[string]string{}
		return nil
	}
	normalized := make(map[string]string, len(c.Fonts))
	for id, path := range c.Fonts {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(path))
		if err != nil {
			return fmt.Errorf("fonts.%s: %w", key, err)
		}
		normalized[key] = expanded
	}
	c.Fonts = normalized
	return nil
}

func (c *Config) normalizeVideos() error {
	c.Videos.DefaultType = strings.ToLower(strings.TrimSpace(c.Videos.DefaultType))
	if c.Videos.DefaultType == "" {
		c.Videos.DefaultType = defaultVideoType
	}
	normalized := make(map[string]string, len(c.Videos.Clips))
	for videoType, path := range c.Videos.Clips {
		key := strings.ToLower(strings.TrimSpace(videoType))
		if key == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(path))
		if err != nil {
			return fmt.Errorf("videos.clips.%s: %w", key, err)
		}
		normalized[key] = expanded
	}
	c.Videos.Clips = normalized
	return nil
}

func (c *Config) normalizeTranscription() error {
	t := &c.Transcription
	t.Provider = strings.ToLower(strings.TrimSpace(t.Provider))
	if t.Provider == "" {
		t.Provider = defaultTranscriptionProvider
	}
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		if t.Provider == ProviderWhisperAPI {
			t.Model = defaultWhisperAPIModel
		} else {
			t.Model = defaultTranscriptionModel
		}
	}
	lang, err := language.Normalize(t.Language)
	if err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	t.Language = lang
	t.VADMethod = strings.ToLower(strings.TrimSpace(t.VADMethod))
	if t.VADMethod == "" {
		t.VADMethod = defaultVADMethod
	}
	t.APIURL = strings.TrimRight(strings.TrimSpace(t.APIURL), "/")
	if t.APIKey == "" {
		if value, ok := os.LookupEnv("WHISPER_API_KEY"); ok {
			t.APIKey = strings.TrimSpace(value)
		}
	}
	if t.HuggingFace == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			t.HuggingFace = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	c.FFmpeg.Preset = strings.ToLower(strings.TrimSpace(c.FFmpeg.Preset))
	if c.FFmpeg.Preset == "" {
		c.FFmpeg.Preset = defaultPreset
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
