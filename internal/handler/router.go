package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-interview/backend/internal/handler/persona"
	"github.com/zhouzirui/z-interview/backend/internal/handler/session"
	statusHandler "github.com/zhouzirui/z-interview/backend/internal/handler/status"
	"github.com/zhouzirui/z-interview/backend/internal/handler/voice"
	"github.com/zhouzirui/z-interview/backend/internal/metrics"
	personaModel "github.com/zhouzirui/z-interview/backend/internal/model/persona"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/status"
)

// API 汇总 API 服务的依赖
type API struct {
	Personas personaModel.Store
	Registry *interviewService.Registry
	Voice    *voice.Handler
}

func newBaseRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	return r
}

// NewRouter 组装面向参与者的 API 路由
func NewRouter(api API) http.Handler {
	r := newBaseRouter()

	personaHandler := persona.New(api.Personas)
	sessionHandler := session.New(api.Registry)

	r.Route("/api", func(apiRouter chi.Router) {
		personaHandler.RegisterRoutes(apiRouter)
		sessionHandler.RegisterRoutes(apiRouter)

		// 语音面试入口
		if api.Voice != nil {
			api.Voice.RegisterRoutes(apiRouter)
		}
	})

	return r
}

// NewStatusRouter 组装状态服务：/ping、/status 与 /metrics
func NewStatusRouter(tracker *status.Tracker, recorder *metrics.Recorder) http.Handler {
	r := newBaseRouter()

	statusHandler.New(tracker).RegisterRoutes(r)
	if recorder != nil {
		r.Method(http.MethodGet, "/metrics", recorder.Handler())
	}

	return r
}
