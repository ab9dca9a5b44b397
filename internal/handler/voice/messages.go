package voice

import "encoding/json"

// 入站消息类型
const (
	inboundAudio     = "audio"
	inboundText      = "text"
	inboundInterrupt = "interrupt"
)

// 出站 data.type
const (
	eventConnected   = "connected"
	eventUtterance   = "utterance"
	eventTranscript  = "transcript"
	eventState       = "state"
	eventInterrupted = "interrupted"
	eventIgnored     = "interrupt_ignored"
)

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AudioMessage 音频分片，isFinal 标记一段回答结束
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	Language  string `json:"language"`
	IsFinal   bool   `json:"isFinal"`
}

// TextMessage 客户端已转写好的回答
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// UtteranceEvent 面试官说的一句话
type UtteranceEvent struct {
	Type          string `json:"type"`
	Kind          string `json:"kind"` // say, ask, reply
	Text          string `json:"text"`
	Interruptible bool   `json:"interruptible"`
	AudioData     string `json:"audioData,omitempty"`
	Format        string `json:"format,omitempty"`
}

// TranscriptEvent 参与者一段回答的识别结果
type TranscriptEvent struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	Claimed    bool    `json:"claimed"`
}

// StateEvent 会话状态变化
type StateEvent struct {
	Type   string `json:"type"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}
