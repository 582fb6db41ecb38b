package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"visiogen/internal/captions"
	"visiogen/internal/config"
	"visiogen/internal/services"
)

// Job is one captioning request.
type Job struct {
	// VideoPath is the source video. Empty selects the clip configured for
	// VideoType.
	VideoPath string
	// AudioPath optionally replaces the video's own audio track, e.g. with
	// synthesized narration. Timestamps are taken from whichever track is used.
	AudioPath   string
	DisplayText string
	Font        string
	VideoType   string
	OutputPath  string
	Language    string
}

// Result describes a completed run.
type Result struct {
	RunID      string
	OutputPath string
	Font       string
	FrameRate  float64
	Frames     int
	Captioned  int
	Captions   captions.Table
	Mismatch   *captions.Mismatch
	Duration   time.Duration
}

// audioSource is the file audio is extracted from and muxed back from.
func (j Job) audioSource() string {
	if j.AudioPath != "" {
		return j.AudioPath
	}
	return j.VideoPath
}

// resolve fills defaults from cfg and checks inputs. It touches the
// filesystem only to stat the inputs.
func resolve(cfg *config.Config, job Job) (Job, error) {
	job.DisplayText = strings.TrimSpace(job.DisplayText)
	if len(captions.SplitWords(job.DisplayText)) == 0 {
		return job, services.Wrap(services.ErrMissingInput, "validate", "display text", "display text is empty", nil)
	}

	job.VideoType = strings.ToLower(strings.TrimSpace(job.VideoType))
	job.VideoPath = strings.TrimSpace(job.VideoPath)
	if job.VideoPath == "" {
		clip, err := cfg.VideoClip(job.VideoType)
		if err != nil {
			return job, services.Wrap(services.ErrConfiguration, "validate", "video type", "", err)
		}
		job.VideoPath = clip
	}

	var err error
	if job.VideoPath, err = config.ExpandPath(job.VideoPath); err != nil {
		return job, services.Wrap(services.ErrValidation, "validate", "video path", job.VideoPath, err)
	}
	if err := checkReadable(job.VideoPath); err != nil {
		return job, services.Wrap(services.ErrResourceOpen, "validate", "open video", job.VideoPath, err)
	}

	if job.AudioPath = strings.TrimSpace(job.AudioPath); job.AudioPath != "" {
		if job.AudioPath, err = config.ExpandPath(job.AudioPath); err != nil {
			return job, services.Wrap(services.ErrValidation, "validate", "audio path", job.AudioPath, err)
		}
		if err := checkReadable(job.AudioPath); err != nil {
			return job, services.Wrap(services.ErrResourceOpen, "validate", "open audio", job.AudioPath, err)
		}
	}

	if job.OutputPath = strings.TrimSpace(job.OutputPath); job.OutputPath == "" {
		base := strings.TrimSuffix(filepath.Base(job.VideoPath), filepath.Ext(job.VideoPath))
		job.OutputPath = filepath.Join(cfg.Paths.OutputDir, base+"-captioned.mp4")
	} else if job.OutputPath, err = config.ExpandPath(job.OutputPath); err != nil {
		return job, services.Wrap(services.ErrValidation, "validate", "output path", job.OutputPath, err)
	}
	if samePath(job.OutputPath, job.VideoPath) || (job.AudioPath != "" && samePath(job.OutputPath, job.AudioPath)) {
		return job, services.Wrap(services.ErrValidation, "validate", "output path", "output would overwrite an input", nil)
	}

	if job.Font = strings.TrimSpace(job.Font); job.Font == "" {
		job.Font = cfg.Render.Font
	}
	job.Language = strings.TrimSpace(job.Language)
	return job, nil
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
