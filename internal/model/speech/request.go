package speech

// ASRRequest 一段完整回答的识别请求，由客户端 isFinal 切分。
type ASRRequest struct {
	SessionID string `json:"sessionId"`
	Audio     []byte `json:"-"`
	Format    string `json:"format"`   // pcm, wav
	Language  string `json:"language"` // en-US, zh-CN
}

// TTSRequest 一句面试官台词的合成请求
type TTSRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice"`
	Speed     float32 `json:"speed"`  // 0.5-2.0
	Volume    float32 `json:"volume"` // 0.0-1.0
	Format    string  `json:"format"` // mp3, pcm
	Language  string  `json:"language"`
}
