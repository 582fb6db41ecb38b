package captions

import (
	"fmt"
	"math"
	"strings"

	"visiogen/internal/services"
)

// WordTiming is one recognised word with start/end offsets in seconds.
type WordTiming struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment groups recognised words the way transcription providers emit them.
type Segment struct {
	Text  string       `json:"text"`
	Start float64      `json:"start"`
	End   float64      `json:"end"`
	Words []WordTiming `json:"words"`
}

// FrameRate is the source video's frames per second, fixed for a run.
type FrameRate float64

// Frame converts seconds to a frame index by flooring. Negative or NaN input
// clamps to frame 0.
func (r FrameRate) Frame(seconds float64) int {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds * float64(r)))
}

// Entry is one display word and the inclusive frame range it is shown on.
// StartFrame <= EndFrame always holds. Hidden entries keep their place in the
// table but are never drawn.
type Entry struct {
	Word       string `json:"word"`
	StartFrame int    `json:"start_frame"`
	EndFrame   int    `json:"end_frame"`
	Hidden     bool   `json:"hidden,omitempty"`
}

// Covers reports whether frame falls inside the entry's inclusive range.
func (e Entry) Covers(frame int) bool {
	return e.drawable() && e.StartFrame <= frame && frame <= e.EndFrame
}

func (e Entry) drawable() bool {
	return !e.Hidden && e.StartFrame <= e.EndFrame
}

// Table holds one entry per display word, in display order.
type Table []Entry

// Lookup returns the first entry whose range contains frame.
func (t Table) Lookup(frame int) (Entry, bool) {
	for _, entry := range t {
		if entry.Covers(frame) {
			return entry, true
		}
	}
	return Entry{}, false
}

// Mismatch records differing word counts between display text and timings.
type Mismatch struct {
	DisplayWords int `json:"display_words"`
	TimedWords   int `json:"timed_words"`
}

// Untimed returns how many display words had no timing available.
func (m Mismatch) Untimed() int {
	if m.DisplayWords > m.TimedWords {
		return m.DisplayWords - m.TimedWords
	}
	return 0
}

// Unused returns how many timings were left without a display word.
func (m Mismatch) Unused() int {
	if m.TimedWords > m.DisplayWords {
		return m.TimedWords - m.DisplayWords
	}
	return 0
}

func (m Mismatch) String() string {
	return fmt.Sprintf("display text has %d words, timestamps have %d", m.DisplayWords, m.TimedWords)
}

// ExcessPolicy decides the frame range of display words beyond the last timing.
type ExcessPolicy int

const (
	// ExcessZero assigns range [0,0]; such words flash on the first frame.
	ExcessZero ExcessPolicy = iota
	// ExcessSuppress assigns an empty range so the word is never drawn.
	ExcessSuppress
	// ExcessExtend pins the word to the last frame of the previous entry.
	ExcessExtend
)

func (p ExcessPolicy) String() string {
	switch p {
	case ExcessZero:
		return "zero"
	case ExcessSuppress:
		return "suppress"
	case ExcessExtend:
		return "extend"
	default:
		return fmt.Sprintf("ExcessPolicy(%d)", int(p))
	}
}

// ParseExcessPolicy maps a config/flag value to a policy.
func ParseExcessPolicy(value string) (ExcessPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "zero":
		return ExcessZero, nil
	case "suppress":
		return ExcessSuppress, nil
	case "extend":
		return ExcessExtend, nil
	default:
		return ExcessZero, services.Wrap(services.ErrValidation, "align", "parse excess policy",
			fmt.Sprintf("unknown excess policy %q (want zero, suppress, or extend)", value), nil)
	}
}

type options struct {
	excess ExcessPolicy
}

// Option configures Align.
type Option func(*options)

// WithExcessPolicy selects how untimed display words are placed.
func WithExcessPolicy(policy ExcessPolicy) Option {
	return func(o *options) {
		o.excess = policy
	}
}

// SplitWords splits display text on runs of whitespace.
func SplitWords(text string) []string {
	return strings.Fields(text)
}

// Align pairs display words with timings by position and converts seconds to
// frames. The table always has exactly one entry per display word. A non-nil
// Mismatch is returned when the counts differ. An end that floors below its
// start is raised to the start frame.
func Align(displayText string, timings []WordTiming, rate FrameRate, opts ...Option) (Table, *Mismatch, error) {
	words := SplitWords(displayText)
	if len(words) == 0 {
		return nil, nil, services.Wrap(services.ErrMissingInput, "align", "split display text", "display text has no words", nil)
	}
	if math.IsNaN(float64(rate)) || math.IsInf(float64(rate), 0) || rate <= 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "align", "check frame rate",
			fmt.Sprintf("frame rate must be positive, got %v", float64(rate)), nil)
	}

	o := options{excess: ExcessZero}
	for _, opt := range opts {
		opt(&o)
	}

	table := make(Table, len(words))
	for i, word := range words {
		if i < len(timings) {
			start := rate.Frame(timings[i].Start)
			end := rate.Frame(timings[i].End)
			if end < start {
				end = start
			}
			table[i] = Entry{Word: word, StartFrame: start, EndFrame: end}
			continue
		}
		table[i] = excessEntry(word, o.excess, table[:i])
	}

	var mismatch *Mismatch
	if len(words) != len(timings) {
		mismatch = &Mismatch{DisplayWords: len(words), TimedWords: len(timings)}
	}
	return table, mismatch, nil
}

func excessEntry(word string, policy ExcessPolicy, prev Table) Entry {
	switch policy {
	case ExcessSuppress:
		return Entry{Word: word, Hidden: true}
	case ExcessExtend:
		if len(prev) == 0 {
			return Entry{Word: word, StartFrame: 0, EndFrame: 0}
		}
		end := prev[len(prev)-1].EndFrame
		return Entry{Word: word, StartFrame: end, EndFrame: end}
	default:
		return Entry{Word: word, StartFrame: 0, EndFrame: 0}
	}
}

// FlattenSegments concatenates per-segment word lists in order.
func FlattenSegments(segments []Segment) []WordTiming {
	total := 0
	for _, seg := range segments {
		total += len(seg.Words)
	}
	out := make([]WordTiming, 0, total)
	for _, seg := range segments {
		out = append(out, seg.Words...)
	}
	return out
}
