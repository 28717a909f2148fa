package capture

import (
	"github.com/mockprep/coach-gateway/internal/question"
)

// QuestionState is the read-only view of one question.
type QuestionState struct {
	Index           int    `json:"index"`
	Prompt          string `json:"prompt"`
	Status          Status `json:"status"`
	Answered        bool   `json:"answered"`
	Locked          bool   `json:"locked"`
	Transcribing    bool   `json:"transcribing"`
	Submitting      bool   `json:"submitting"`
	Typed           string `json:"typed"`
	Transcribed     string `json:"transcribed"`
	HasAudio        bool   `json:"has_audio"`
	DurationSeconds int    `json:"duration_seconds"`
}

// State is a snapshot of the flow for rendering.
type State struct {
	InterviewID     string          `json:"interview_id"`
	AttemptNumber   int             `json:"attempt_number"`
	Current         int             `json:"current"`
	Total           int             `json:"total"`
	Remaining       int             `json:"remaining_seconds"`
	Recording       bool            `json:"recording"`
	CanAdvance      bool            `json:"can_advance"`
	IsLast          bool            `json:"is_last"`
	UnsavedProgress bool            `json:"unsaved_progress"`
	Completed       bool            `json:"completed"`
	Questions       []QuestionState `json:"questions"`
}

// State returns a snapshot of the whole flow.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := State{
		InterviewID:     f.interviewID,
		AttemptNumber:   f.attempt,
		Current:         f.current,
		Total:           len(f.slots),
		Remaining:       f.remaining,
		Recording:       f.rec != nil,
		CanAdvance:      f.canAdvanceLocked(),
		IsLast:          f.current == len(f.slots)-1,
		UnsavedProgress: f.lockedCountLocked() != len(f.slots),
		Completed:       f.completed,
		Questions:       make([]QuestionState, len(f.slots)),
	}
	for i, s := range f.slots {
		_, transcribing := f.jobs[i]
		st.Questions[i] = QuestionState{
			Index:           i,
			Prompt:          question.Format(f.questions[i]),
			Status:          s.status(),
			Answered:        s.answer.IsAnswered(),
			Locked:          s.locked(),
			Transcribing:    transcribing,
			Submitting:      s.pending,
			Typed:           s.answer.Typed,
			Transcribed:     s.answer.Transcribed,
			HasAudio:        s.answer.Audio != nil,
			DurationSeconds: s.answer.DurationSeconds(),
		}
	}
	return st
}

// Questions returns the raw question texts.
func (f *Flow) Questions() []string {
	out := make([]string, len(f.questions))
	copy(out, f.questions)
	return out
}

// Current returns the active question index.
func (f *Flow) Current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Answer returns a copy of the answer to question i.
func (f *Flow) Answer(i int) (Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.slots) {
		return Answer{}, ErrOutOfRange
	}
	return f.slots[i].view(), nil
}

// IsAnswered reports whether question i has typed text or a transcript.
func (f *Flow) IsAnswered(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return i >= 0 && i < len(f.slots) && f.slots[i].answer.IsAnswered()
}

// IsLocked reports whether question i has been submitted.
func (f *Flow) IsLocked(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return i >= 0 && i < len(f.slots) && f.slots[i].locked()
}

// Locked returns the answers of every locked question.
func (f *Flow) Locked() map[int]Answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]Answer)
	for i, s := range f.slots {
		if s.locked() {
			out[i] = s.view()
		}
	}
	return out
}

// CanAdvance reports whether Next/Submit is enabled for the active question.
func (f *Flow) CanAdvance() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canAdvanceLocked()
}

// HasUnsavedProgress reports whether leaving now would drop answers that
// were never submitted.
func (f *Flow) HasUnsavedProgress() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lockedCountLocked() != len(f.slots)
}

// Completed reports whether Finish has succeeded.
func (f *Flow) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Recording reports whether a recording is running.
func (f *Flow) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec != nil
}

// Remaining returns the countdown in seconds.
func (f *Flow) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remaining
}

func (f *Flow) canAdvanceLocked() bool {
	return f.slots[f.current].answer.IsAnswered()
}

func (f *Flow) lockedCountLocked() int {
	n := 0
	for _, s := range f.slots {
		if s.locked() {
			n++
		}
	}
	return n
}
