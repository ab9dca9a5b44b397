package speech

import "time"

// Transcript 识别结果
type Transcript struct {
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Duration   int64     `json:"duration"` // milliseconds
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Audio 合成结果
type Audio struct {
	SessionID string    `json:"sessionId"`
	Data      []byte    `json:"-"`
	Duration  int64     `json:"duration"` // milliseconds
	Format    string    `json:"format"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
