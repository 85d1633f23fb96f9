package voice

// CaptureMode is the microphone state seen by the user.
type CaptureMode string

const (
	CaptureOff        CaptureMode = "off"
	CaptureListening  CaptureMode = "listening"
	CaptureContinuous CaptureMode = "listening-continuous"
)

// TurnPhase is derived from the pending and speaking flags.
type TurnPhase string

const (
	TurnIdle     TurnPhase = "idle"
	TurnPending  TurnPhase = "pending"
	TurnSpeaking TurnPhase = "speaking"
)

// State is a snapshot of the controller flags.
type State struct {
	Capture          CaptureMode `json:"capture"`
	Speaking         bool        `json:"speaking"`
	RequestPending   bool        `json:"requestPending"`
	CaptureAvailable bool        `json:"captureAvailable"`
	SpeechAvailable  bool        `json:"speechAvailable"`
}

func (s State) Turn() TurnPhase {
	switch {
	case s.Speaking && s.RequestPending:
		return TurnSpeaking
	case s.RequestPending:
		return TurnPending
	default:
		return TurnIdle
	}
}
