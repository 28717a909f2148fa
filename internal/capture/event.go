package capture

// EventKind names a flow notification.
type EventKind string

const (
	EventQuestionChanged     EventKind = "question_changed"
	EventRecordingStarted    EventKind = "recording_started"
	EventTick                EventKind = "tick"
	EventRecordingStopped    EventKind = "recording_stopped"
	EventRecordingAbandoned  EventKind = "recording_abandoned"
	EventRecordingFailed     EventKind = "recording_failed"
	EventTranscribing        EventKind = "transcribing"
	EventTranscribed         EventKind = "transcribed"
	EventTranscriptionFailed EventKind = "transcription_failed"
	EventAnswerUpdated       EventKind = "answer_updated"
	EventAnswerReset         EventKind = "answer_reset"
	EventSubmitting          EventKind = "submitting"
	EventSubmitFailed        EventKind = "submit_failed"
	EventLocked              EventKind = "locked"
	EventCompleted           EventKind = "completed"
)

// Event is emitted after the flow's state has changed.
type Event struct {
	Kind  EventKind
	Index int
	// Remaining is the countdown in seconds for recording events.
	Remaining int
	// Auto marks a recording stopped by the countdown.
	Auto bool
	// Text carries the transcript for EventTranscribed.
	Text string
	Err  error
}
