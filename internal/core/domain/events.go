package domain

// JobSignal is an external control signal addressed to a running job.
type JobSignal string

const (
	SignalPause  JobSignal = "pause"
	SignalResume JobSignal = "resume"
	SignalCancel JobSignal = "cancel"
)

// StreamingEvent is the closed set of transient per-job events emitted while
// a summarization job runs. Events are broadcast per job id; new subscribers
// receive the most recent event, not the full history.
type StreamingEvent interface {
	streamingEvent()
}

type SectionStarted struct {
	SectionID string
	Index     int
}

type SectionCompleted struct {
	Section SectionSummary
}

type SectionFailed struct {
	SectionID string
	Err       string
}

type ProgressUpdate struct {
	Current    int
	Total      int
	Percentage float64
	Paused     bool
}

type OverallSummaryReady struct {
	Summary SummarizeResponse
}

type ProcessingComplete struct{}

type ProcessingError struct {
	Err string
}

func (SectionStarted) streamingEvent()      {}
func (SectionCompleted) streamingEvent()    {}
func (SectionFailed) streamingEvent()       {}
func (ProgressUpdate) streamingEvent()      {}
func (OverallSummaryReady) streamingEvent() {}
func (ProcessingComplete) streamingEvent()  {}
func (ProcessingError) streamingEvent()     {}
