package config

import (
	"errors"
	"fmt"
	"strings"

	"visiogen/internal/captions"
)

var validPresets = map[string]struct{}{
	"ultrafast": {}, "superfast": {}, "veryfast": {}, "faster": {}, "fast": {},
	"medium": {}, "slow": {}, "slower": {}, "veryslow": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateVideos(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.ScratchDir == c.Paths.OutputDir {
		return errors.New("paths.scratch_dir and paths.output_dir must differ; scratch is wiped after every run")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FontSize <= 0 {
		return errors.New("render.font_size must be positive")
	}
	if c.Render.DPI <= 0 {
		return errors.New("render.dpi must be positive")
	}
	if c.Render.OutlineThickness < 0 {
		return errors.New("render.outline_thickness must not be negative")
	}
	if c.Render.BottomOffset < 0 {
		return errors.New("render.bottom_offset must not be negative")
	}
	if _, err := captions.ParseExcessPolicy(c.Render.ExcessPolicy); err != nil {
		return fmt.Errorf("render.excess_policy: %w", err)
	}
	if _, err := ParseHexColor(c.Render.FillColor); err != nil {
		return fmt.Errorf("render.fill_color: %w", err)
	}
	if _, err := ParseHexColor(c.Render.OutlineColor); err != nil {
		return fmt.Errorf("render.outline_color: %w", err)
	}
	return nil
}

func (c *Config) validateVideos() error {
	if c.Videos.DefaultType == "" {
		return errors.New("videos.default_type must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	switch t.Provider {
	case ProviderWhisperX:
		switch t.VADMethod {
		case "silero", "pyannote":
		default:
			return fmt.Errorf("transcription.vad_method must be silero or pyannote, got %q", t.VADMethod)
		}
		if t.VADMethod == "pyannote" && t.HuggingFace == "" {
			return errors.New("transcription.hf_token is required for pyannote VAD. Set HF_TOKEN env var or edit the config file")
		}
	case ProviderWhisperAPI:
		if t.APIURL == "" {
			return errors.New("transcription.api_url must be set when transcription.provider is whisper_api")
		}
	default:
		return fmt.Errorf("transcription.provider must be %s or %s, got %q", ProviderWhisperX, ProviderWhisperAPI, t.Provider)
	}
	if t.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	if t.CacheMaxAgeDays < 0 {
		return errors.New("transcription.cache_max_age_days must not be negative")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		return errors.New("ffmpeg.crf must be between 0 and 51")
	}
	if _, ok := validPresets[c.FFmpeg.Preset]; !ok {
		return fmt.Errorf("ffmpeg.preset %q is not a libx264 preset", c.FFmpeg.Preset)
	}
	if c.FFmpeg.StageTimeoutSeconds <= 0 {
		return errors.New("ffmpeg.stage_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
