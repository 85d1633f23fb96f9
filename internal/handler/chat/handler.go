package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Biorevtech-Agents/AI-Assistant/internal/model/chat"
	chatService "github.com/Biorevtech-Agents/AI-Assistant/internal/service/chat"
	"github.com/Biorevtech-Agents/AI-Assistant/pkg/utils"
)

const maxBodyBytes = 64 << 10

// Handler 聊天列表的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{chatID}", h.handleGet)
		r.Delete("/{chatID}", h.handleDelete)
		r.Post("/{chatID}/select", h.handleSelect)
		r.Post("/{chatID}/messages", h.handleAppend)
	})
}

// handleList 列出聊天，支持 ?q= 标题搜索
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	utils.RespondJSON(w, http.StatusOK, chat.Snapshot{
		ActiveChatID: h.chatSvc.ActiveChat(ctx).ID,
		Chats:        h.chatSvc.List(ctx, r.URL.Query().Get("q")),
	})
}

// handleCreate 新建聊天并设为当前聊天
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusCreated, h.chatSvc.CreateChat(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.chatSvc.Chat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, c)
}

// handleDelete 删除聊天，返回删除后的完整列表
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.chatSvc.DeleteChat(ctx, chi.URLParam(r, "chatID")); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.Snapshot(ctx))
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chatID := chi.URLParam(r, "chatID")
	if err := h.chatSvc.SelectChat(ctx, chatID); err != nil {
		respondServiceError(w, err)
		return
	}
	c, err := h.chatSvc.Chat(ctx, chatID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, c)
}

// handleAppend 追加消息
func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Sender chat.Sender `json:"sender"`
		Text   string      `json:"text"`
	}

	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chatSvc.AppendMessage(r.Context(), chi.URLParam(r, "chatID"), payload.Sender, payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, msg)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrChatNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrInvalidSender), errors.Is(err, chatService.ErrEmptyText):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
