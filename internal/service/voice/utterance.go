package voice

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	LangHindi   = "hi-IN"
	LangEnglish = "en-IN"

	SpeechRate  = 0.9
	SpeechPitch = 1.0
)

// Voice is one installed synthesizer voice.
type Voice struct {
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default,omitempty"`
}

// LanguageFor picks hi-IN for text carrying any Devanagari rune, en-IN otherwise.
func LanguageFor(text string) string {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return LangHindi
		}
	}
	return LangEnglish
}

// Utterance is a single request to the synthesizer. Voice is nil when the
// synthesizer should use its default voice for Lang.
type Utterance struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Lang  string  `json:"lang"`
	Voice *Voice  `json:"voice,omitempty"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`

	mu        sync.Mutex
	onEnd     []func()
	finished  bool
	cancelled bool
}

// NewUtterance prepares text for playback using the best installed voice.
func NewUtterance(text string, voices *Registry) *Utterance {
	lang := LanguageFor(text)
	var selected *Voice
	if voices != nil {
		selected = voices.Select(lang)
	}
	return &Utterance{
		ID:    uuid.NewString(),
		Text:  text,
		Lang:  lang,
		Voice: selected,
		Rate:  SpeechRate,
		Pitch: SpeechPitch,
	}
}

// OnEnd registers fn for the end of playback. If playback already ended, fn
// runs immediately.
func (u *Utterance) OnEnd(fn func()) {
	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		return
	}
	if u.finished {
		u.mu.Unlock()
		fn()
		return
	}
	u.onEnd = append(u.onEnd, fn)
	u.mu.Unlock()
}

// Finish is called by the synthesizer when playback ends naturally. It is
// ignored after the utterance was cancelled or already finished.
func (u *Utterance) Finish() {
	u.mu.Lock()
	if u.finished || u.cancelled {
		u.mu.Unlock()
		return
	}
	u.finished = true
	handlers := u.onEnd
	u.onEnd = nil
	u.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

func (u *Utterance) cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cancelled = true
	u.onEnd = nil
}

// Registry caches the installed voices. It loads lazily on first use and is
// replaced wholesale when the synthesizer reports a change.
type Registry struct {
	mu     sync.Mutex
	load   func() []Voice
	loaded bool
	voices []Voice
}

func NewRegistry(load func() []Voice) *Registry {
	return &Registry{load: load}
}

func (r *Registry) Voices() []Voice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		r.loaded = true
		if r.load != nil {
			r.voices = append([]Voice(nil), r.load()...)
		}
	}
	return append([]Voice(nil), r.voices...)
}

// Refresh replaces the cached list after a provider change event.
func (r *Registry) Refresh(voices []Voice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = true
	r.voices = append([]Voice(nil), voices...)
}

// Select returns the first voice suited to lang, or nil for the default.
func (r *Registry) Select(lang string) *Voice {
	wantHindi := lang == LangHindi
	prefix := strings.ToLower(lang)

	for _, v := range r.Voices() {
		langMatch := strings.HasPrefix(strings.ToLower(v.Lang), prefix)
		hindiName := strings.Contains(strings.ToLower(v.Name), "hindi")
		if (wantHindi && (langMatch || hindiName)) || (!wantHindi && langMatch && !hindiName) {
			selected := v
			return &selected
		}
	}
	return nil
}
