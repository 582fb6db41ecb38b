package captions

import (
	"bytes"
	"encoding/json"
	"fmt"

	"visiogen/internal/services"
)

// ParseWordTimings decodes saved timestamps. It accepts a bare array of
// words, an object with a top-level "words" array (Whisper verbose_json), or
// an object with "segments" carrying per-segment words (WhisperX). Top-level
// words win when both are present.
func ParseWordTimings(data []byte) ([]WordTiming, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, services.Wrap(services.ErrMissingInput, "align", "parse timings", "timing file is empty", nil)
	}
	if trimmed[0] == '[' {
		var words []WordTiming
		if err := json.Unmarshal(trimmed, &words); err != nil {
			return nil, services.Wrap(services.ErrValidation, "align", "parse timings", "invalid word array", err)
		}
		return words, nil
	}

	var payload struct {
		Words    []WordTiming `json:"words"`
		Segments []Segment    `json:"segments"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "align", "parse timings", "invalid timing document", err)
	}
	if len(payload.Words) > 0 {
		return payload.Words, nil
	}
	if words := FlattenSegments(payload.Segments); len(words) > 0 {
		return words, nil
	}
	return nil, services.Wrap(services.ErrValidation, "align", "parse timings",
		fmt.Sprintf("no words found in %d segments", len(payload.Segments)), nil)
}
