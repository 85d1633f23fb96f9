package voice

import (
	voiceService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/voice"
)

// remoteCapture drives the browser's speech recognizer over the socket.
type remoteCapture struct {
	s    *session
	opts voiceService.CaptureOptions
}

func (c *remoteCapture) Configure(opts voiceService.CaptureOptions) {
	c.opts = opts
}

func (c *remoteCapture) Start() error {
	opts := c.opts
	return c.s.send(typeCaptureCommand, CaptureCommand{Action: "start", Options: &opts})
}

func (c *remoteCapture) Stop() error {
	return c.s.send(typeCaptureCommand, CaptureCommand{Action: "stop"})
}

// remoteSynth drives the browser's speech synthesizer. Utterances are kept
// until the browser reports their end; only the loop touches the map.
type remoteSynth struct {
	s       *session
	playing map[string]*voiceService.Utterance
}

func newRemoteSynth(s *session) *remoteSynth {
	return &remoteSynth{s: s, playing: make(map[string]*voiceService.Utterance)}
}

func (r *remoteSynth) Speak(u *voiceService.Utterance) error {
	if err := r.s.send(typeSynthSpeak, u); err != nil {
		return err
	}
	r.playing[u.ID] = u
	return nil
}

func (r *remoteSynth) Cancel() {
	clear(r.playing)
	if err := r.s.send(typeSynthCancel, nil); err != nil {
		r.s.logf("synth cancel failed: %v", err)
	}
}

// Voices is empty until the browser reports its list.
func (r *remoteSynth) Voices() []voiceService.Voice {
	return nil
}

func (r *remoteSynth) finish(id string) {
	u, ok := r.playing[id]
	if !ok {
		return
	}
	delete(r.playing, id)
	u.Finish()
}
