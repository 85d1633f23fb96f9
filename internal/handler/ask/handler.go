package ask

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	aiService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/ai"
	"github.com/Biorevtech-Agents/AI-Assistant/pkg/utils"
)

const (
	maxBodyBytes = 64 << 10

	msgQuestionRequired = "question is required"
	msgUpstreamFailure  = "Error fetching AI response"
	msgUnavailable      = "AI service unavailable"
)

// Answerer is the completion backend behind /ask.
type Answerer interface {
	Ask(ctx context.Context, question string) (string, error)
	StreamAnswer(ctx context.Context, question string) (*schema.StreamReader[*schema.Message], error)
	StreamingEnabled() bool
}

// Handler serves the answer proxy endpoints.
type Handler struct {
	ai Answerer
}

// New builds the handler. A nil ai makes every request answer 503.
func New(ai Answerer) *Handler {
	return &Handler{ai: ai}
}

type askRequest struct {
	Question string `json:"question"`
}

// Response is the body of every /ask reply, success or failure.
type Response struct {
	Answer string `json:"answer"`
}

// RegisterRoutes mounts /ask and /ask/stream.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ask", h.handleAsk)
	r.Post("/ask/stream", h.handleAskStream)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	question, ok := h.decodeQuestion(w, r)
	if !ok {
		return
	}

	answer, err := h.ai.Ask(r.Context(), question)
	if err != nil {
		if errors.Is(err, aiService.ErrEmptyQuestion) {
			utils.RespondJSON(w, http.StatusBadRequest, Response{Answer: msgQuestionRequired})
			return
		}
		log.Printf("[ask] upstream error: %v", err)
		utils.RespondJSON(w, http.StatusInternalServerError, Response{Answer: msgUpstreamFailure})
		return
	}

	utils.RespondJSON(w, http.StatusOK, Response{Answer: answer})
}

func (h *Handler) handleAskStream(w http.ResponseWriter, r *http.Request) {
	question, ok := h.decodeQuestion(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondJSON(w, http.StatusInternalServerError, Response{Answer: "streaming unsupported"})
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	answer, err := h.dispatch(r.Context(), w, flusher, question)
	if err != nil {
		log.Printf("[ask] stream error: %v", err)
		utils.SendSSEEvent(w, flusher, "error", Response{Answer: msgUpstreamFailure})
		return
	}

	utils.SendSSEEvent(w, flusher, "message", Response{Answer: answer})
	utils.SendSSEEvent(w, flusher, "end", struct{}{})
}

func (h *Handler) dispatch(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, question string) (string, error) {
	if !h.ai.StreamingEnabled() {
		return h.ai.Ask(ctx, question)
	}

	stream, err := h.ai.StreamAnswer(ctx, question)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			utils.SendSSEEvent(w, flusher, "delta", map[string]string{"content": chunk.Content})
		}
	}

	if len(chunks) == 0 {
		return aiService.NoAnswer, nil
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response.Content) == "" {
		return aiService.NoAnswer, nil
	}
	return response.Content, nil
}

func (h *Handler) decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload askRequest
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil || strings.TrimSpace(payload.Question) == "" {
		utils.RespondJSON(w, http.StatusBadRequest, Response{Answer: msgQuestionRequired})
		return "", false
	}

	if h.ai == nil {
		utils.RespondJSON(w, http.StatusServiceUnavailable, Response{Answer: msgUnavailable})
		return "", false
	}
	return strings.TrimSpace(payload.Question), true
}
