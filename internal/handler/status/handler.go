// Package status 提供状态服务的存活检查与面试状态接口
package status

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-interview/backend/internal/service/status"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

const pingMessage = "server is working perfectly fine"

// Handler 状态服务处理器
type Handler struct {
	tracker *status.Tracker
}

// New 创建状态处理器
func New(tracker *status.Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// RegisterRoutes 注册 /ping 与 /status
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ping", h.handlePing)
	r.Get("/status", h.handleStatus)
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": pingMessage})
}

// handleStatus 返回 {"running": bool, "connected_room": string|null}
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.tracker.Snapshot())
}
