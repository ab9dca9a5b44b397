package interview

import (
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/analysis/assessment"
)

// State is the lifecycle position of a session.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// Session captures one scripted interview with a single participant.
type Session struct {
	ID            string                 `json:"id"`
	RoomName      string                 `json:"roomName"`
	ParticipantID string                 `json:"participantId"`
	InterviewerID string                 `json:"interviewerId,omitempty"`
	Variant       string                 `json:"variant"`
	State         State                  `json:"state"`
	Turns         []Turn                 `json:"turns"`
	Assessment    *assessment.Assessment `json:"assessment,omitempty"`
	AssessedTurn  int                    `json:"assessedTurn,omitempty"`
	Scores        *assessment.Scores     `json:"scores,omitempty"`
	AbortReason   string                 `json:"abortReason,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	EndedAt       *time.Time             `json:"endedAt,omitempty"`
}
