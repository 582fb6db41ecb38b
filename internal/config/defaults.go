package config

const (
	defaultScratchDir            = "~/.local/share/visiogen/scratch"
	defaultOutputDir             = "~/Videos/visiogen"
	defaultLogDir                = "~/.local/share/visiogen/logs"
	defaultCacheDir              = "~/.cache/visiogen"
	defaultFont                  = "go-bold"
	defaultFontSize              = 60
	defaultDPI                   = 72
	defaultOutlineThickness      = 4
	defaultBottomOffset          = 200
	defaultFillColor             = "#ffffff"
	defaultOutlineColor          = "#000000"
	defaultVideoType             = "minecraft"
	defaultExcessPolicy          = "zero"
	defaultTranscriptionProvider = ProviderWhisperX
	defaultTranscriptionModel    = "large-v3"
	defaultVADMethod             = "silero"
	defaultTranscriptionTimeout  = 1800
	defaultTranscriptCacheMaxAge = 30
	defaultWhisperAPIModel       = "whisper-1"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultCRF                   = 20
	defaultPreset                = "medium"
	defaultStageTimeoutSeconds   = 900
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Transcription providers.
const (
	ProviderWhisperX   = "whisperx"
	ProviderWhisperAPI = "whisper_api"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir,
		},
		Render: Render{
			Font:             defaultFont,
			FontSize:         defaultFontSize,
			DPI:              defaultDPI,
			OutlineThickness: defaultOutlineThickness,
			BottomOffset:     defaultBottomOffset,
			FillColor:        defaultFillColor,
			OutlineColor:     defaultOutlineColor,
			ExcessPolicy:     defaultExcessPolicy,
		},
		Fonts: map[string]string{},
		Videos: Videos{
			DefaultType: defaultVideoType,
			Clips: map[string]string{
				"minecraft": "~/Videos/backgrounds/minecraft.mp4",
				"subway":    "~/Videos/backgrounds/subway.mp4",
			},
		},
		// Model stays empty so normalizeTranscription picks the provider's default.
		Transcription: Transcription{
			Provider:        defaultTranscriptionProvider,
			VADMethod:       defaultVADMethod,
			TimeoutSeconds:  defaultTranscriptionTimeout,
			CacheEnabled:    true,
			CacheMaxAgeDays: defaultTranscriptCacheMaxAge,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			CRF:                 defaultCRF,
			Preset:              defaultPreset,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
