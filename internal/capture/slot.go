package capture

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Status is the lifecycle state of one question.
type Status string

const (
	StatusUnanswered Status = "unanswered"
	StatusRecording  Status = "recording"
	StatusCaptured   Status = "captured"
	StatusLocked     Status = "locked"
)

const (
	evRecord  = "record"
	evStop    = "stop"
	evAbandon = "abandon"
	evEdit    = "edit"
	evClear   = "clear"
	evLock    = "lock"
)

// slot holds one question's answer. Every write goes through mutate, which
// refuses once the slot is locked, so a locked answer cannot change.
type slot struct {
	index   int
	answer  Answer
	machine *fsm.FSM
	// pending is set while the answer is out for submission.
	pending bool
	// parked holds a transcript that finished while pending was set.
	parked *string
}

func newSlot(index int) *slot {
	return &slot{
		index: index,
		machine: fsm.NewFSM(
			string(StatusUnanswered),
			fsm.Events{
				{Name: evRecord, Src: []string{string(StatusUnanswered), string(StatusCaptured)}, Dst: string(StatusRecording)},
				{Name: evStop, Src: []string{string(StatusRecording)}, Dst: string(StatusCaptured)},
				{Name: evAbandon, Src: []string{string(StatusRecording)}, Dst: string(StatusUnanswered)},
				{Name: evEdit, Src: []string{string(StatusUnanswered)}, Dst: string(StatusCaptured)},
				{Name: evClear, Src: []string{string(StatusCaptured)}, Dst: string(StatusUnanswered)},
				{Name: evLock, Src: []string{string(StatusCaptured)}, Dst: string(StatusLocked)},
			},
			fsm.Callbacks{},
		),
	}
}

func (s *slot) status() Status {
	return Status(s.machine.Current())
}

func (s *slot) locked() bool {
	return s.machine.Is(string(StatusLocked))
}

// view returns a copy of the answer.
func (s *slot) view() Answer {
	a := s.answer
	if a.Audio != nil {
		clip := *a.Audio
		a.Audio = &clip
	}
	return a
}

func (s *slot) writable() error {
	if s.locked() {
		return ErrLocked
	}
	if s.pending {
		return ErrSubmitInProgress
	}
	return nil
}

func (s *slot) mutate(fn func(a *Answer)) error {
	if err := s.writable(); err != nil {
		return err
	}
	fn(&s.answer)
	return s.sync()
}

// sync moves between unanswered and captured to match the answer's content.
// It does nothing while recording.
func (s *slot) sync() error {
	switch s.status() {
	case StatusUnanswered:
		if s.answer.hasContent() {
			return s.fire(evEdit)
		}
	case StatusCaptured:
		if !s.answer.hasContent() {
			return s.fire(evClear)
		}
	}
	return nil
}

func (s *slot) fire(event string) error {
	if err := s.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("question %d %s: %w", s.index, event, err)
	}
	return nil
}

func (s *slot) startRecording() error {
	if err := s.writable(); err != nil {
		return err
	}
	return s.fire(evRecord)
}

func (s *slot) stopRecording(clip Clip) error {
	s.answer.Audio = &clip
	return s.fire(evStop)
}

// abandonRecording discards the recording in progress and falls back to
// whatever the answer held before it started.
func (s *slot) abandonRecording() error {
	if err := s.fire(evAbandon); err != nil {
		return err
	}
	return s.sync()
}

func (s *slot) lock() error {
	if s.locked() {
		return nil
	}
	s.parked = nil
	return s.fire(evLock)
}

// unpark applies a transcript held back during a submission that failed.
func (s *slot) unpark() (string, bool, error) {
	if s.parked == nil {
		return "", false, nil
	}
	text := *s.parked
	s.parked = nil
	if err := s.mutate(func(a *Answer) { a.merge(text) }); err != nil {
		return "", false, err
	}
	return text, true, nil
}

// restoreLocked seeds a slot that was locked in an earlier session.
func (s *slot) restoreLocked(a Answer) {
	s.answer = a
	s.pending = false
	s.parked = nil
	s.machine.SetState(string(StatusLocked))
}
