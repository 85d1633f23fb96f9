package voice

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/model/chat"
	chatService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/chat"
	voiceService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/voice"
)

// session is one browser connection. Everything except send runs on loop.
type session struct {
	ctx     context.Context
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex

	loop    *voiceService.Loop
	ctrl    *voiceService.Controller
	synth   *remoteSynth
	chatSvc *chatService.Service

	dictate bool
}

func newSession(ctx context.Context, id string, conn *websocket.Conn, chatSvc *chatService.Service) *session {
	return &session{
		ctx:     ctx,
		id:      id,
		conn:    conn,
		loop:    voiceService.NewLoop(),
		chatSvc: chatSvc,
	}
}

func (s *session) greet() {
	s.ctrl.LoadVoices()
	s.StateChanged(s.ctrl.State())
	s.sendChats()
}

func (s *session) handleMessage(msg inboundMessage) {
	switch msg.Type {
	case typeAsk:
		var p AskPayload
		if s.decode(msg, &p) {
			s.ctrl.AskQuestion(s.ctx, p.Question)
		}
	case typeCancel:
		s.ctrl.CancelAll()
	case typeCaptureStart:
		var p CaptureStartPayload
		if !s.decode(msg, &p) {
			return
		}
		s.dictate = p.Dictate
		if err := s.ctrl.StartCapture(p.Continuous); errors.Is(err, voiceService.ErrCaptureActive) {
			s.sendError(err.Error())
		}
	case typeCaptureStop:
		s.ctrl.StopCapture()
	case typeCaptureStarted:
		s.ctrl.OnCaptureStart()
	case typeCaptureResult:
		var p CaptureResultPayload
		if s.decode(msg, &p) {
			s.ctrl.OnTranscript(p.Transcript)
		}
	case typeCaptureEnd:
		s.ctrl.OnCaptureEnd()
	case typeCaptureError:
		var p CaptureErrorPayload
		if s.decode(msg, &p) {
			s.ctrl.OnCaptureError(p.Code)
		}
	case typeSynthVoices:
		var p VoicesPayload
		if s.decode(msg, &p) {
			s.ctrl.SetVoices(p.Voices)
		}
	case typeSynthEnd:
		var p SynthEndPayload
		if s.decode(msg, &p) && s.synth != nil {
			s.synth.finish(p.ID)
		}
	case typeChatList:
		s.sendChats()
	case typeChatNew:
		s.chatSvc.CreateChat(s.ctx)
		s.sendChats()
	case typeChatSelect, typeChatDelete:
		var p ChatPayload
		if !s.decode(msg, &p) {
			return
		}
		var err error
		if msg.Type == typeChatSelect {
			err = s.chatSvc.SelectChat(s.ctx, p.ChatID)
		} else {
			err = s.chatSvc.DeleteChat(s.ctx, p.ChatID)
		}
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.sendChats()
	default:
		s.sendError("unsupported message type: " + msg.Type)
	}
}

func (s *session) decode(msg inboundMessage, dst interface{}) bool {
	if len(msg.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		s.sendError("invalid " + msg.Type + " payload")
		return false
	}
	return true
}

// StateChanged implements voiceService.Observer.
func (s *session) StateChanged(state voiceService.State) {
	s.sendOrLog(typeState, state)
}

func (s *session) MessageAppended(chatID string, msg chat.Message) {
	s.sendOrLog(typeMessage, MessageEvent{ChatID: chatID, Message: msg})
}

// Transcript either fills the browser's text field or asks the question.
func (s *session) Transcript(text string) {
	if s.dictate {
		s.sendOrLog(typeDictation, map[string]string{"text": text})
		return
	}
	s.ctrl.AskQuestion(s.ctx, text)
}

func (s *session) CaptureFailed(err error) {
	s.sendOrLog(typeCaptureFailed, map[string]string{"error": err.Error()})
}

func (s *session) sendChats() {
	s.sendOrLog(typeChats, s.chatSvc.Snapshot(s.ctx))
}

func (s *session) sendError(message string) {
	s.sendOrLog(typeError, map[string]string{"message": message})
}

func (s *session) sendOrLog(msgType string, data interface{}) {
	if err := s.send(msgType, data); err != nil {
		s.logf("write %s failed: %v", msgType, err)
	}
}

// send is safe for concurrent use.
func (s *session) send(msgType string, data interface{}) error {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: s.id,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *session) logf(format string, args ...interface{}) {
	log.Printf("[voice] session "+s.id+": "+format, args...)
}

// pingLoop keeps the connection alive until ctx ends.
func (s *session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
