package capture

import (
	"math"
	"strings"
	"time"
)

// Clip is one recorded answer encoded as WAV.
type Clip struct {
	Data     []byte
	Duration time.Duration
}

// DurationSeconds is the clip's playback length rounded to whole seconds.
func (c *Clip) DurationSeconds() int {
	if c == nil {
		return 0
	}
	return int(math.Round(c.Duration.Seconds()))
}

// Answer is the user's response to one question.
type Answer struct {
	Typed       string
	Transcribed string
	// Audio is nil until a recording is stopped; re-recording replaces it.
	Audio *Clip
}

// IsAnswered reports whether the answer carries any text.
func (a Answer) IsAnswered() bool {
	return strings.TrimSpace(a.Typed) != "" || strings.TrimSpace(a.Transcribed) != ""
}

// FinalAnswer is the text submitted for review: typed text wins over the transcript.
func (a Answer) FinalAnswer() string {
	if typed := strings.TrimSpace(a.Typed); typed != "" {
		return typed
	}
	return strings.TrimSpace(a.Transcribed)
}

// DurationSeconds is the length of the recorded clip, 0 without audio.
func (a Answer) DurationSeconds() int {
	return a.Audio.DurationSeconds()
}

func (a Answer) hasContent() bool {
	return a.IsAnswered() || a.Audio != nil
}

// merge applies a finished transcript. The transcript becomes the visible
// answer only when nothing was typed.
func (a *Answer) merge(transcript string) {
	a.Transcribed = transcript
	if strings.TrimSpace(a.Typed) == "" {
		a.Typed = transcript
	}
}
