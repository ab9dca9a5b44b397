package interview

import "time"

// Turn is one spoken prompt and, when the script waited for it, the answer.
type Turn struct {
	Index         int       `json:"index"`
	Prompt        string    `json:"prompt"`
	Answer        string    `json:"answer,omitempty"`
	Captured      bool      `json:"captured"`
	Interruptible bool      `json:"interruptible"`
	CreatedAt     time.Time `json:"createdAt"`
}
