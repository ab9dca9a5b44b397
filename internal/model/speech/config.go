package speech

// SpeechConfig 火山引擎语音配置，ASR 与 TTS 共用一套凭证。
type SpeechConfig struct {
	AppID          string `json:"appId"`
	AccessToken    string `json:"accessToken"`
	APIKey         string `json:"apiKey,omitempty"` // 兼容旧配置
	ConcurrentMode bool   `json:"concurrentMode"`   // ASR 并发版（false 为小时版）

	ASRLanguage string `json:"asrLanguage"`

	TTSVoice    string  `json:"ttsVoice"`
	TTSSpeed    float32 `json:"ttsSpeed"`
	TTSVolume   float32 `json:"ttsVolume"`
	TTSLanguage string  `json:"ttsLanguage"`
	TTSFormat   string  `json:"ttsFormat"`

	Timeout int `json:"timeout"` // seconds
}
