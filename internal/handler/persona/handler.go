package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

// Handler 面试官列表的HTTP处理器
type Handler struct {
	personas persona.Store
}

type variantFilter interface {
	WithVariant(variant string) []persona.Persona
}

// New 创建面试官处理器
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册面试官相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/interviewers", h.handleList)
	r.Get("/interviewers/{id}", h.handleGet)
}

// handleList 列出面试官，?variant= 按脚本版本过滤
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	variant := utils.Query(r, "variant")
	if variant == "" {
		utils.RespondJSON(w, http.StatusOK, h.personas.List())
		return
	}

	list := make([]persona.Persona, 0)
	if filter, ok := h.personas.(variantFilter); ok {
		list = append(list, filter.WithVariant(variant)...)
	} else {
		for _, p := range h.personas.List() {
			if p.ScriptVariant == variant {
				list = append(list, p)
			}
		}
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personas.FindByID(chi.URLParam(r, "id"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "interviewer not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
