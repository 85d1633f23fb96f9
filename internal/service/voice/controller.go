package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/model/chat"
)

const (
	StoppedNotice = "Response stopped."
	ErrorNotice   = "Error contacting backend"
)

// Options wires a controller to its platform devices and collaborators. A nil
// Capture or Synth means the platform lacks that capability.
type Options struct {
	Capture      CaptureDevice
	Synth        Synthesizer
	Answers      AnswerClient
	Conversation Conversation
	Observer     Observer
	// Welcome is spoken once when voices first become available. Empty disables it.
	Welcome string
}

type turn struct {
	ctx    context.Context
	chatID string
	handle *CancelHandle
}

// Controller arbitrates between capture, synthesis and the answer request so
// that at most one voice turn is in flight. Every method must run on the
// controller's loop.
type Controller struct {
	loop     *Loop
	capture  CaptureDevice
	synth    Synthesizer
	voices   *Registry
	answers  AnswerClient
	conv     Conversation
	observer Observer
	welcome  string

	state       State
	captureOpen bool
	continuous  bool
	// stopping is set while a stopped session has not reported its end yet.
	// reopen asks for a new session once that end arrives.
	stopping         bool
	reopen           bool
	reopenContinuous bool

	current       *turn
	utterance     *Utterance
	welcomeSpoken bool
}

func NewController(loop *Loop, opts Options) *Controller {
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	var load func() []Voice
	if opts.Synth != nil {
		load = opts.Synth.Voices
	}

	return &Controller{
		loop:     loop,
		capture:  opts.Capture,
		synth:    opts.Synth,
		voices:   NewRegistry(load),
		answers:  opts.Answers,
		conv:     opts.Conversation,
		observer: observer,
		welcome:  opts.Welcome,
		state: State{
			Capture:          CaptureOff,
			CaptureAvailable: opts.Capture != nil,
			SpeechAvailable:  opts.Synth != nil,
		},
	}
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Voices() *Registry {
	return c.voices
}

// LoadVoices reads the installed voices for the first time.
func (c *Controller) LoadVoices() {
	c.maybeWelcome(c.voices.Voices())
}

// SetVoices handles a synthesizer voices-changed event.
func (c *Controller) SetVoices(voices []Voice) {
	c.voices.Refresh(voices)
	c.maybeWelcome(voices)
}

func (c *Controller) maybeWelcome(voices []Voice) {
	if c.welcome == "" || c.welcomeSpoken || len(voices) == 0 {
		return
	}
	c.welcomeSpoken = true
	c.Speak(c.welcome)
}

// Speak submits text to the synthesizer. It returns nil when speech is
// unavailable or the synthesizer rejected the utterance.
func (c *Controller) Speak(text string) *Utterance {
	if c.synth == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	u := NewUtterance(text, c.voices)
	if err := c.synth.Speak(u); err != nil {
		log.Printf("[voice] synthesizer rejected utterance %s: %v", u.ID, err)
		return nil
	}

	c.utterance = u
	c.setSpeaking(true)
	u.OnEnd(func() {
		c.loop.Post(func() { c.utteranceEnded(u) })
	})
	return u
}

func (c *Controller) utteranceEnded(u *Utterance) {
	if c.utterance != u {
		return
	}
	c.utterance = nil
	c.setSpeaking(false)
}

// CancelAll stops synthesis, aborts the pending request and closes capture.
// It is safe to call at any time.
func (c *Controller) CancelAll() {
	c.cancelTurn()
	c.StopCapture()
}

func (c *Controller) cancelTurn() {
	if c.synth != nil {
		c.synth.Cancel()
	}
	if c.utterance != nil {
		c.utterance.cancel()
		c.utterance = nil
	}
	if c.current != nil {
		c.current.handle.Cancel()
		c.current = nil
	}
	c.update(func(s *State) {
		s.Speaking = false
		s.RequestPending = false
	})
}

// AskQuestion preempts any unfinished turn and starts a new one for text.
// Blank text is ignored. Capture is left running so continuous talk survives.
func (c *Controller) AskQuestion(ctx context.Context, text string) {
	question := strings.TrimSpace(text)
	if question == "" {
		return
	}

	c.cancelTurn()

	t := &turn{ctx: context.WithoutCancel(ctx)}
	if c.conv != nil {
		t.chatID = c.conv.ActiveChat(t.ctx).ID
	}
	c.appendMessage(t, chat.SenderUser, question)

	reqCtx, handle := NewCancelHandle(ctx)
	t.handle = handle
	c.current = t
	c.setPending(true)

	if c.answers == nil {
		c.finishTurn(t, "", errors.New("no answer client configured"))
		return
	}

	go func() {
		answer, err := c.answers.Ask(reqCtx, question)
		if !c.loop.Post(func() { c.finishTurn(t, answer, err) }) {
			handle.Complete()
		}
	}()
}

func (c *Controller) finishTurn(t *turn, answer string, err error) {
	aborted := t.handle.Cancelled() || errors.Is(err, context.Canceled)
	t.handle.Complete()
	active := c.current == t

	switch {
	case aborted:
		c.appendMessage(t, chat.SenderBot, StoppedNotice)
	case err == nil && strings.TrimSpace(answer) == "":
		log.Printf("[voice] answer request returned no text")
		c.appendMessage(t, chat.SenderBot, ErrorNotice)
	case err != nil:
		log.Printf("[voice] answer request failed: %v", err)
		c.appendMessage(t, chat.SenderBot, ErrorNotice)
	default:
		c.appendMessage(t, chat.SenderBot, answer)
		if !active {
			return
		}
		if u := c.Speak(answer); u != nil {
			u.OnEnd(func() {
				c.loop.Post(func() { c.settle(t) })
			})
			return
		}
	}

	if active {
		c.settle(t)
	}
}

func (c *Controller) settle(t *turn) {
	if c.current != t {
		return
	}
	c.current = nil
	c.setPending(false)
}

func (c *Controller) appendMessage(t *turn, sender chat.Sender, text string) {
	if c.conv == nil {
		return
	}
	msg, err := c.conv.AppendMessage(t.ctx, t.chatID, sender, text)
	if err != nil {
		log.Printf("[voice] failed to record %s message in chat %s: %v", sender, t.chatID, err)
		return
	}
	c.observer.MessageAppended(t.chatID, msg)
}

// StartCapture opens the capture device. Asking for continuous capture while
// a single-shot session is open stops that session first; continuous capture
// then starts when the device reports the end. A start requested while a
// stopped session is still winding down is likewise deferred to its end.
func (c *Controller) StartCapture(continuous bool) error {
	if c.capture == nil {
		c.resetCapture()
		c.observer.CaptureFailed(ErrCaptureUnavailable)
		return ErrCaptureUnavailable
	}

	if c.captureOpen {
		if continuous && !c.continuous {
			if !c.stopping {
				c.stopping = true
				if err := c.capture.Stop(); err != nil {
					log.Printf("[voice] failed to stop single-shot capture: %v", err)
				}
			}
			c.reopen = true
			c.reopenContinuous = true
			return nil
		}
		return ErrCaptureActive
	}

	if c.stopping {
		c.reopen = true
		c.reopenContinuous = continuous
		return nil
	}

	return c.openCapture(continuous)
}

func (c *Controller) openCapture(continuous bool) error {
	c.capture.Configure(CaptureOptions{
		Continuous:     continuous,
		InterimResults: false,
		Lang:           CaptureLang,
	})
	if err := c.capture.Start(); err != nil {
		c.resetCapture()
		err = fmt.Errorf("start capture: %w", err)
		c.observer.CaptureFailed(err)
		return err
	}

	c.captureOpen = true
	c.continuous = continuous
	mode := CaptureListening
	if continuous {
		mode = CaptureContinuous
	}
	c.setCapture(mode)
	return nil
}

// StopCapture is an explicit stop request; continuous capture will not restart.
func (c *Controller) StopCapture() {
	open := c.captureOpen && !c.stopping
	c.reopen = false
	c.resetCapture()
	if !open || c.capture == nil {
		return
	}
	c.stopping = true
	if err := c.capture.Stop(); err != nil {
		log.Printf("[voice] failed to stop capture: %v", err)
	}
}

// OnCaptureStart handles the device start event.
func (c *Controller) OnCaptureStart() {
	log.Printf("[voice] capture started continuous=%t", c.continuous)
}

// OnTranscript handles a recognized phrase. Single-shot capture closes after
// one transcript; continuous capture stays open.
func (c *Controller) OnTranscript(text string) {
	if !c.continuous && !c.reopen {
		c.windDown()
	}
	if text = strings.TrimSpace(text); text != "" {
		c.observer.Transcript(text)
	}
}

// OnCaptureEnd handles the device end event. Continuous capture that ended
// without an explicit stop is restarted once; a failed restart turns capture off.
func (c *Controller) OnCaptureEnd() {
	if c.capture == nil {
		return
	}

	if c.stopping {
		c.stopping = false
		c.captureOpen = false
		if c.reopen {
			c.reopen = false
			_ = c.openCapture(c.reopenContinuous)
		}
		return
	}

	if c.captureOpen && c.continuous {
		if err := c.capture.Start(); err != nil {
			c.resetCapture()
			c.observer.CaptureFailed(fmt.Errorf("%w: %v", ErrCaptureRestart, err))
		}
		return
	}

	c.resetCapture()
}

// OnCaptureError handles a device error. Capture turns off with no retry.
func (c *Controller) OnCaptureError(code string) {
	c.reopen = false
	c.windDown()
	c.observer.CaptureFailed(&CaptureError{Code: code})
}

// windDown turns capture off for a session the device is ending on its own.
// Its end event is still expected.
func (c *Controller) windDown() {
	if c.captureOpen {
		c.stopping = true
	}
	c.resetCapture()
}

func (c *Controller) resetCapture() {
	c.captureOpen = false
	c.continuous = false
	c.setCapture(CaptureOff)
}

func (c *Controller) setCapture(mode CaptureMode) {
	c.update(func(s *State) { s.Capture = mode })
}

func (c *Controller) setSpeaking(speaking bool) {
	c.update(func(s *State) { s.Speaking = speaking })
}

func (c *Controller) setPending(pending bool) {
	c.update(func(s *State) { s.RequestPending = pending })
}

func (c *Controller) update(mutate func(*State)) {
	next := c.state
	mutate(&next)
	if next == c.state {
		return
	}
	c.state = next
	c.observer.StateChanged(next)
}
