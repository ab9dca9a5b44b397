package voice

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-interview/backend/internal/metrics"
	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	interviewservice "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/speech"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

// Options 语音入口的依赖，Recognizer/Synthesizer/Responder 可以为空。
type Options struct {
	Runner      *interviewservice.Runner
	Personas    persona.Store
	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
	Responder   Responder
	Metrics     *metrics.Recorder

	DefaultInterviewer string
	DefaultVariant     string
	Language           string
	MaxDuration        time.Duration
}

// Handler 参与者 WebSocket 入口，一个连接对应一场面试。
type Handler struct {
	opts        Options
	connections *ConnectionManager
	upgrader    websocket.Upgrader
}

// New 创建语音处理器
func New(opts Options) *Handler {
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	return &Handler{
		opts:        opts,
		connections: NewConnectionManager(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册 WebSocket 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/interview/ws/{room}", h.handleWebSocket)
}

// Connections 返回连接管理器
func (h *Handler) Connections() *ConnectionManager {
	return h.connections
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	room := strings.TrimSpace(chi.URLParam(r, "room"))
	if room == "" {
		utils.RespondError(w, http.StatusBadRequest, "room is required")
		return
	}

	identity := utils.Query(r, "identity")
	if identity == "" {
		identity = "participant-" + uuid.NewString()[:8]
	}

	requested := utils.Query(r, "interviewer")
	interviewer, ok := h.resolveInterviewer(requested)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "interviewer not found")
		return
	}

	variant := utils.Query(r, "variant")
	if variant == "" && requested != "" {
		variant = interviewer.ScriptVariant
	}
	if variant == "" {
		variant = h.opts.DefaultVariant
	}

	s, err := h.opts.Runner.Script(variant)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[voice] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if replaced := h.connections.Add(room, conn); replaced {
		log.Printf("[voice] room=%s replaced an older connection", room)
	}
	defer h.connections.Remove(room, conn)

	log.Printf("[voice] participant %s joined room %s (interviewer=%s, variant=%s)", identity, room, interviewer.ID, s.Name)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if h.opts.MaxDuration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, h.opts.MaxDuration)
		defer timeoutCancel()
	}

	language := interviewer.Language
	if language == "" {
		language = h.opts.Language
	}

	agent := newAgent(conn, agentConfig{
		room:         room,
		voice:        interviewer.VoiceID,
		language:     language,
		systemPrompt: s.SystemPrompt,
		recognizer:   h.opts.Recognizer,
		synthesizer:  h.opts.Synthesizer,
		responder:    h.opts.Responder,
		turns:        h.sessionTurns,
		metrics:      h.opts.Metrics,
	})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		agent.readLoop(ctx, cancel)
	}()
	go agent.pingLoop(ctx)

	agent.sendEvent(map[string]any{
		"type":        eventConnected,
		"room":        room,
		"identity":    identity,
		"interviewer": interviewer.ID,
		"variant":     s.Name,
		"speech":      h.opts.Recognizer != nil,
	})

	session, runErr := h.opts.Runner.Run(ctx, interviewservice.CreateParams{
		RoomName:      room,
		ParticipantID: identity,
		InterviewerID: interviewer.ID,
		Variant:       s.Name,
	}, agent)

	if runErr != nil && session.ID == "" {
		agent.sendError(runErr.Error())
	}
	if session.ID != "" {
		agent.sendEvent(StateEvent{Type: eventState, State: string(session.State), Reason: session.AbortReason})
	}

	agent.waitReplies()
	if session.State == interviewmodel.StateCompleted {
		agent.closeNormally("interview completed")
	}

	conn.Close()
	<-readDone
}

func (h *Handler) resolveInterviewer(requested string) (persona.Persona, bool) {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		return h.opts.Personas.FindByID(requested)
	}
	if h.opts.DefaultInterviewer != "" {
		if p, ok := h.opts.Personas.FindByID(h.opts.DefaultInterviewer); ok {
			return p, true
		}
	}
	list := h.opts.Personas.List()
	if len(list) == 0 {
		return persona.Persona{}, false
	}
	return list[0], true
}

func (h *Handler) sessionTurns(ctx context.Context, sessionID string) ([]interviewmodel.Turn, error) {
	session, err := h.opts.Runner.Registry().Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Turns, nil
}
