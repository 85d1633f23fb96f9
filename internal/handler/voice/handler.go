package voice

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	chatService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/chat"
	voiceService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/voice"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// WebSocketHandler serves voice sessions. The browser acts as the capture
// device and the synthesizer; the server runs one controller per connection.
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	answers  voiceService.AnswerClient
	welcome  string
	upgrader websocket.Upgrader
}

// NewWebSocketHandler builds the handler. An empty welcome disables the greeting.
func NewWebSocketHandler(chatSvc *chatService.Service, answers voiceService.AnswerClient, welcome string) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		answers: answers,
		welcome: welcome,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the voice socket.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/voice/ws", h.handleWebSocket)
}

// handleWebSocket upgrades the connection. ?capture=false and ?synthesis=false
// declare a browser without the matching capability.
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	hasCapture := queryBool(r, "capture", true)
	hasSynth := queryBool(r, "synthesis", true)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[voice] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := newSession(ctx, uuid.NewString(), conn, h.chatSvc)
	opts := voiceService.Options{
		Answers:      h.answers,
		Conversation: h.chatSvc,
		Observer:     s,
		Welcome:      h.welcome,
	}
	if hasCapture {
		opts.Capture = &remoteCapture{s: s}
	}
	if hasSynth {
		s.synth = newRemoteSynth(s)
		opts.Synth = s.synth
	}
	s.ctrl = voiceService.NewController(s.loop, opts)

	log.Printf("[voice] session %s connected capture=%t synthesis=%t", s.id, hasCapture, hasSynth)
	defer log.Printf("[voice] session %s closed", s.id)

	go func() {
		_ = s.loop.Run(ctx)
	}()
	go s.pingLoop(ctx)

	s.loop.Post(s.greet)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[voice] session %s read error: %v", s.id, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if !s.loop.Post(func() { s.handleMessage(msg) }) {
			return
		}
	}
}

func queryBool(r *http.Request, key string, defaultValue bool) bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
