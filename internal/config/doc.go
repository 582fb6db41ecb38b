// Package config loads, normalizes, and validates visiogen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WHISPER_API_KEY and HF_TOKEN. The Config type centralizes every knob the
// CLI and pipeline need: scratch and output directories, caption styling,
// font and background clip tables, the transcription provider, and ffmpeg
// settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
