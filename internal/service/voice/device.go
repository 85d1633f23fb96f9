package voice

import (
	"context"
	"errors"
	"fmt"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/model/chat"
)

// CaptureLang is the recognition language handed to every capture device.
const CaptureLang = "en-US"

var (
	ErrCaptureUnavailable   = errors.New("speech capture is not available")
	ErrSynthesisUnavailable = errors.New("speech synthesis is not available")
	ErrCaptureActive        = errors.New("capture already active")
	ErrCaptureRestart       = errors.New("continuous capture restart failed")
)

// CaptureOptions configures the next capture session.
type CaptureOptions struct {
	Continuous     bool   `json:"continuous"`
	InterimResults bool   `json:"interimResults"`
	Lang           string `json:"lang"`
}

// CaptureDevice is the platform microphone recognizer. Results come back
// through the controller's On* methods.
type CaptureDevice interface {
	Configure(opts CaptureOptions)
	Start() error
	Stop() error
}

// Synthesizer plays utterances. Cancel stops playback without calling
// Utterance.Finish.
type Synthesizer interface {
	Speak(u *Utterance) error
	Cancel()
	Voices() []Voice
}

// AnswerClient resolves a question to an answer. It must honour ctx
// cancellation by returning an error wrapping context.Canceled.
type AnswerClient interface {
	Ask(ctx context.Context, question string) (string, error)
}

// AnswerFunc adapts a plain function to AnswerClient.
type AnswerFunc func(ctx context.Context, question string) (string, error)

func (f AnswerFunc) Ask(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// Conversation is the chat collection the controller records turns into.
type Conversation interface {
	ActiveChat(ctx context.Context) chat.Chat
	AppendMessage(ctx context.Context, chatID string, sender chat.Sender, text string) (chat.Message, error)
}

// Observer receives controller notifications on the loop goroutine.
type Observer interface {
	StateChanged(state State)
	MessageAppended(chatID string, msg chat.Message)
	Transcript(text string)
	CaptureFailed(err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) StateChanged(State)                   {}
func (NopObserver) MessageAppended(string, chat.Message) {}
func (NopObserver) Transcript(string)                    {}
func (NopObserver) CaptureFailed(error)                  {}

// CaptureError is a device reported failure such as a denied permission.
type CaptureError struct {
	Code string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture error: %s", e.Code)
}
