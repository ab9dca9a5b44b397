package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

// 可选的语音后端
const (
	BackendAuto       = "auto"
	BackendVolcengine = "volcengine"
	BackendText       = "text"
)

// ErrSpeechDisabled 纯文本后端不处理音频
var ErrSpeechDisabled = errors.New("speech backend is text-only")

// Recognizer 将一段完整回答转成文字
type Recognizer interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.Transcript, error)
}

// Synthesizer 将面试官台词合成音频
type Synthesizer interface {
	SynthesizeToBuffer(ctx context.Context, sessionID, text, voice, language string) (*speechmodel.Audio, error)
}

// Service 语音服务，按配置选择后端。
type Service struct {
	backend string
	config  *speechmodel.SpeechConfig
	asr     *VolcengineASR
	tts     *VolcengineTTS
}

// NewService 按 backend 名称创建语音服务。auto 在凭证齐全时使用火山引擎，否则退化为纯文本。
func NewService(backend string, cfg *speechmodel.SpeechConfig) (*Service, error) {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		backend = BackendAuto
	}

	_, credErr := resolveCredentials(cfg)

	switch backend {
	case BackendAuto:
		if credErr != nil {
			log.Printf("[speech] credentials not configured, using %s backend", BackendText)
			return &Service{backend: BackendText, config: cfg}, nil
		}
		backend = BackendVolcengine
	case BackendVolcengine:
		if credErr != nil {
			return nil, fmt.Errorf("speech backend %s: %w", backend, credErr)
		}
	case BackendText:
		return &Service{backend: BackendText, config: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown speech backend %q", backend)
	}

	return &Service{
		backend: backend,
		config:  cfg,
		asr:     NewVolcengineASR(cfg),
		tts:     NewVolcengineTTS(cfg),
	}, nil
}

// Backend 返回实际使用的后端名称
func (s *Service) Backend() string {
	return s.backend
}

// Enabled 表示是否真正处理音频
func (s *Service) Enabled() bool {
	return s != nil && s.backend != BackendText
}

// TranscribeBuffer 识别一段音频
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.Transcript, error) {
	if !s.Enabled() {
		return nil, ErrSpeechDisabled
	}
	return s.asr.Transcribe(ctx, &speechmodel.ASRRequest{
		SessionID: sessionID,
		Audio:     audio,
		Format:    format,
		Language:  language,
	})
}

// SynthesizeToBuffer 合成一句台词
func (s *Service) SynthesizeToBuffer(ctx context.Context, sessionID, text, voice, language string) (*speechmodel.Audio, error) {
	if !s.Enabled() {
		return nil, ErrSpeechDisabled
	}
	return s.tts.Synthesize(ctx, &speechmodel.TTSRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Language:  language,
	})
}
