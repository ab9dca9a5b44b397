package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-interview/backend/internal/analysis/assessment"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

var (
	ErrRoomRequired     = errors.New("room name is required")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionEnded     = errors.New("session already ended")
	ErrInvalidTurnIndex = errors.New("invalid turn index")
)

// Registry keeps interview sessions in memory. Nothing is persisted; ended
// sessions stay readable until the process exits.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
	order    []string
	now      func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*interview.Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateParams describes a new session.
type CreateParams struct {
	RoomName      string
	ParticipantID string
	InterviewerID string
	Variant       string
}

// Create registers a running session.
func (r *Registry) Create(_ context.Context, params CreateParams) (interview.Session, error) {
	room := strings.TrimSpace(params.RoomName)
	if room == "" {
		return interview.Session{}, ErrRoomRequired
	}

	session := &interview.Session{
		ID:            uuid.NewString(),
		RoomName:      room,
		ParticipantID: strings.TrimSpace(params.ParticipantID),
		InterviewerID: params.InterviewerID,
		Variant:       params.Variant,
		State:         interview.StateRunning,
		Turns:         make([]interview.Turn, 0, 16),
		CreatedAt:     r.now(),
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.order = append(r.order, session.ID)
	r.mu.Unlock()

	return cloneSession(session), nil
}

// AppendTurn adds a prompt to the session log and returns its index.
func (r *Registry) AppendTurn(_ context.Context, sessionID, prompt string, interruptible bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.runningLocked(sessionID)
	if err != nil {
		return 0, err
	}

	idx := len(session.Turns)
	session.Turns = append(session.Turns, interview.Turn{
		Index:         idx,
		Prompt:        prompt,
		Interruptible: interruptible,
		CreatedAt:     r.now(),
	})
	return idx, nil
}

// RecordAnswer stores the captured answer for a turn.
func (r *Registry) RecordAnswer(_ context.Context, sessionID string, turn int, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.runningLocked(sessionID)
	if err != nil {
		return err
	}
	if turn < 0 || turn >= len(session.Turns) {
		return ErrInvalidTurnIndex
	}

	session.Turns[turn].Answer = answer
	session.Turns[turn].Captured = true
	return nil
}

// RecordAssessment stores the heuristic result and which turn it came from.
func (r *Registry) RecordAssessment(_ context.Context, sessionID string, turn int, result assessment.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.runningLocked(sessionID)
	if err != nil {
		return err
	}

	session.Assessment = &result
	session.AssessedTurn = turn
	return nil
}

// RecordScores stores the scores that were spoken to the participant.
func (r *Registry) RecordScores(_ context.Context, sessionID string, scores assessment.Scores) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.runningLocked(sessionID)
	if err != nil {
		return err
	}

	session.Scores = &scores
	return nil
}

// Complete marks the session as completed.
func (r *Registry) Complete(_ context.Context, sessionID string) error {
	return r.finish(sessionID, interview.StateCompleted, "")
}

// Abort marks the session as aborted with the given reason.
func (r *Registry) Abort(_ context.Context, sessionID, reason string) error {
	return r.finish(sessionID, interview.StateAborted, reason)
}

func (r *Registry) finish(sessionID string, state interview.State, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.runningLocked(sessionID)
	if err != nil {
		return err
	}

	ended := r.now()
	session.State = state
	session.AbortReason = reason
	session.EndedAt = &ended
	return nil
}

// Get retrieves a copy of a session.
func (r *Registry) Get(_ context.Context, sessionID string) (interview.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return interview.Session{}, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// List returns copies of all sessions in creation order.
func (r *Registry) List(_ context.Context) []interview.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]interview.Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneSession(r.sessions[id]))
	}
	return out
}

func (r *Registry) runningLocked(sessionID string) (*interview.Session, error) {
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.State.Terminal() {
		return nil, ErrSessionEnded
	}
	return session, nil
}

func cloneSession(s *interview.Session) interview.Session {
	out := *s
	out.Turns = append([]interview.Turn(nil), s.Turns...)
	if s.Assessment != nil {
		a := *s.Assessment
		out.Assessment = &a
	}
	if s.Scores != nil {
		sc := *s.Scores
		out.Scores = &sc
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	return out
}
