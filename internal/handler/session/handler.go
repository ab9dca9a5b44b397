package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

// Handler 面试会话查询的HTTP处理器，会话只读。
type Handler struct {
	registry *interviewService.Registry
}

// New 创建会话处理器
func New(registry *interviewService.Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/{sessionID}", h.handleGet)
}

// handleList 列出会话，可按 state / room 过滤
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	state := interview.State(utils.Query(r, "state"))
	switch state {
	case "", interview.StateRunning, interview.StateCompleted, interview.StateAborted:
	default:
		utils.RespondError(w, http.StatusBadRequest, "invalid state: "+string(state))
		return
	}
	room := utils.Query(r, "room")

	sessions := make([]interview.Session, 0)
	for _, s := range h.registry.List(r.Context()) {
		if state != "" && s.State != state {
			continue
		}
		if room != "" && s.RoomName != room {
			continue
		}
		sessions = append(sessions, s)
	}

	utils.RespondJSON(w, http.StatusOK, sessions)
}

// handleGet 获取单个会话及其轮次
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.registry.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, interviewService.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}
