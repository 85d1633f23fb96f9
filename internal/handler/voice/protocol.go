package voice

import (
	"encoding/json"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/model/chat"
	voiceService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/voice"
)

// Inbound message types sent by the browser.
const (
	typeAsk            = "ask"
	typeCancel         = "cancel"
	typeCaptureStart   = "capture.start"
	typeCaptureStop    = "capture.stop"
	typeCaptureStarted = "capture.started"
	typeCaptureResult  = "capture.result"
	typeCaptureEnd     = "capture.end"
	typeCaptureError   = "capture.error"
	typeSynthVoices    = "synth.voices"
	typeSynthEnd       = "synth.end"
	typeChatList       = "chat.list"
	typeChatNew        = "chat.new"
	typeChatSelect     = "chat.select"
	typeChatDelete     = "chat.delete"
)

// Outbound message types sent to the browser.
const (
	typeCaptureCommand = "capture.command"
	typeCaptureFailed  = "capture.failed"
	typeSynthSpeak     = "synth.speak"
	typeSynthCancel    = "synth.cancel"
	typeState          = "state"
	typeMessage        = "message"
	typeChats          = "chats"
	typeDictation      = "dictation"
	typeError          = "error"
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// AskPayload submits a typed question.
type AskPayload struct {
	Question string `json:"question"`
}

// CaptureStartPayload requests microphone capture. Dictate routes the
// transcript back to the text field instead of asking it.
type CaptureStartPayload struct {
	Continuous bool `json:"continuous"`
	Dictate    bool `json:"dictate"`
}

type CaptureResultPayload struct {
	Transcript string `json:"transcript"`
}

type CaptureErrorPayload struct {
	Code string `json:"code"`
}

type VoicesPayload struct {
	Voices []voiceService.Voice `json:"voices"`
}

type SynthEndPayload struct {
	ID string `json:"id"`
}

type ChatPayload struct {
	ChatID string `json:"chatId"`
}

// CaptureCommand asks the browser recognizer to start or stop.
type CaptureCommand struct {
	Action  string                       `json:"action"`
	Options *voiceService.CaptureOptions `json:"options,omitempty"`
}

// MessageEvent announces a message appended by a voice turn.
type MessageEvent struct {
	ChatID  string       `json:"chatId"`
	Message chat.Message `json:"message"`
}
