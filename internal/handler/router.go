package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/config"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/handler/ask"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/handler/chat"
	"github.com/Biorevtech-Agents/AI-Assistant/internal/handler/voice"
	middlewarePkg "github.com/Biorevtech-Agents/AI-Assistant/internal/middleware"
	aiService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/ai"
	chatService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/chat"
	voiceService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/voice"
	"github.com/Biorevtech-Agents/AI-Assistant/pkg/utils"
)

var errAIUnavailable = errors.New("ai service not configured")

// Options carries the optional parts of the router.
type Options struct {
	// Welcome is spoken to voice sessions once their voices load. Empty disables it.
	Welcome string
}

// NewRouter wires HTTP routes to core services. aiSvc may be nil when no
// upstream model is configured.
func NewRouter(serverCfg config.ServerConfig, chatSvc *chatService.Service, aiSvc *aiService.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(serverCfg.AllowedOrigins))

	var answerer ask.Answerer
	var answers voiceService.AnswerClient = voiceService.AnswerFunc(func(context.Context, string) (string, error) {
		return "", errAIUnavailable
	})
	if aiSvc != nil {
		answerer = aiSvc
		answers = aiSvc
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ai":     aiSvc != nil,
		})
	})

	ask.New(answerer).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		chat.New(chatSvc).RegisterRoutes(api)
		voice.NewWebSocketHandler(chatSvc, answers, opts.Welcome).RegisterRoutes(api)
	})

	return r
}
