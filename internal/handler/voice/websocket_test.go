package voice

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/chat"
	voiceService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/voice"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/storage"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, answers voiceService.AnswerClient, query string) *websocket.Conn {
	t.Helper()

	chatSvc, err := chatService.NewService(context.Background(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("chat service: %v", err)
	}

	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc, answers, chatService.WelcomeText).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/voice/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "data": data}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// expect reads until a message of msgType arrives, skipping others.
func expect(t *testing.T, conn *websocket.Conn, msgType string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg received
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg.Data
		}
	}
}

func TestVoiceSessionAnswersAndSpeaks(t *testing.T) {
	answers := voiceService.AnswerFunc(func(context.Context, string) (string, error) {
		return "Hi there", nil
	})
	conn := dial(t, answers, "")

	var chats struct {
		ActiveChatID string `json:"activeChatId"`
	}
	if err := json.Unmarshal(expect(t, conn, typeChats), &chats); err != nil || chats.ActiveChatID == "" {
		t.Fatalf("expected initial chats, got %v", err)
	}

	sendMsg(t, conn, typeSynthVoices, VoicesPayload{Voices: []voiceService.Voice{{Name: "Rishi", Lang: "en-IN"}}})
	var welcome voiceService.Utterance
	if err := json.Unmarshal(expect(t, conn, typeSynthSpeak), &welcome); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if welcome.Text != chatService.WelcomeText {
		t.Fatalf("expected welcome speech, got %q", welcome.Text)
	}
	sendMsg(t, conn, typeSynthEnd, SynthEndPayload{ID: welcome.ID})

	sendMsg(t, conn, typeAsk, AskPayload{Question: "Hello"})

	var user MessageEvent
	if err := json.Unmarshal(expect(t, conn, typeMessage), &user); err != nil || user.Message.Text != "Hello" {
		t.Fatalf("expected user message, got %+v (%v)", user, err)
	}
	var bot MessageEvent
	if err := json.Unmarshal(expect(t, conn, typeMessage), &bot); err != nil || bot.Message.Text != "Hi there" {
		t.Fatalf("expected bot message, got %+v (%v)", bot, err)
	}
	if bot.ChatID != chats.ActiveChatID {
		t.Fatalf("expected answer in chat %s, got %s", chats.ActiveChatID, bot.ChatID)
	}

	var speech voiceService.Utterance
	if err := json.Unmarshal(expect(t, conn, typeSynthSpeak), &speech); err != nil {
		t.Fatalf("decode speech: %v", err)
	}
	if speech.Text != "Hi there" || speech.Lang != voiceService.LangEnglish || speech.Voice == nil || speech.Voice.Name != "Rishi" {
		t.Fatalf("unexpected utterance text=%q lang=%q voice=%+v", speech.Text, speech.Lang, speech.Voice)
	}

	sendMsg(t, conn, typeSynthEnd, SynthEndPayload{ID: speech.ID})
	for {
		var state voiceService.State
		if err := json.Unmarshal(expect(t, conn, typeState), &state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if state.Turn() == voiceService.TurnIdle && !state.Speaking {
			break
		}
	}
}

func TestVoiceSessionContinuousCapture(t *testing.T) {
	asked := make(chan string, 1)
	answers := voiceService.AnswerFunc(func(_ context.Context, q string) (string, error) {
		asked <- q
		return "ok", nil
	})
	conn := dial(t, answers, "?synthesis=false")

	sendMsg(t, conn, typeCaptureStart, CaptureStartPayload{Continuous: true})
	var cmd CaptureCommand
	if err := json.Unmarshal(expect(t, conn, typeCaptureCommand), &cmd); err != nil {
		t.Fatalf("decode command: %v", err)
	}
	want := voiceService.CaptureOptions{Continuous: true, InterimResults: false, Lang: voiceService.CaptureLang}
	if cmd.Action != "start" || cmd.Options == nil || *cmd.Options != want {
		t.Fatalf("unexpected capture command %+v", cmd)
	}

	sendMsg(t, conn, typeCaptureEnd, nil)
	cmd = CaptureCommand{}
	if err := json.Unmarshal(expect(t, conn, typeCaptureCommand), &cmd); err != nil || cmd.Action != "start" {
		t.Fatalf("expected automatic restart, got %+v (%v)", cmd, err)
	}

	sendMsg(t, conn, typeCaptureResult, CaptureResultPayload{Transcript: "what is the weather"})
	select {
	case q := <-asked:
		if q != "what is the weather" {
			t.Fatalf("unexpected question %q", q)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("transcript was not asked")
	}
}

func TestVoiceSessionDictationAndMissingCapture(t *testing.T) {
	conn := dial(t, voiceService.AnswerFunc(func(context.Context, string) (string, error) {
		t.Error("dictation must not ask")
		return "", nil
	}), "")

	sendMsg(t, conn, typeCaptureStart, CaptureStartPayload{Dictate: true})
	expect(t, conn, typeCaptureCommand)
	sendMsg(t, conn, typeCaptureResult, CaptureResultPayload{Transcript: "draft text"})

	var dictation map[string]string
	if err := json.Unmarshal(expect(t, conn, typeDictation), &dictation); err != nil || dictation["text"] != "draft text" {
		t.Fatalf("unexpected dictation %v (%v)", dictation, err)
	}

	noMic := dial(t, nil, "?capture=false")
	sendMsg(t, noMic, typeCaptureStart, CaptureStartPayload{Continuous: true})
	expect(t, noMic, typeCaptureFailed)

	sendMsg(t, noMic, "bogus", nil)
	expect(t, noMic, typeError)
}
