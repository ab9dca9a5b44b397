package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

const (
	ttsURL = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

	ttsResourceDefault = "volc.service_type.10029"
	ttsResourceMega    = "volc.megatts.default"
	ttsResourceSeed    = "seed-tts-2.0"

	ttsSampleRate = 24000
)

// ErrEmptyAudio 服务端正常结束但没有返回音频
var ErrEmptyAudio = errors.New("TTS audio is empty")

// voiceAliases 将面试官音色别名映射到真实 speaker。
var voiceAliases = map[string]string{
	"en_default":      "en_female_amy_jupiter_bigtts",
	"katrina":         "en_female_amy_jupiter_bigtts",
	"katrina-relaxed": "en_female_amy_jupiter_bigtts",
}

// seedHints 命中任一关键字的音色优先走 seed-tts-2.0 资源
var seedHints = []string{
	"bigtts", "seed", "megatts", "uranus", "venus", "jupiter",
	"saturn", "neptune", "mercury", "pluto", "mars",
}

// VolcengineTTS 火山引擎单向流式合成
type VolcengineTTS struct {
	config *speechmodel.SpeechConfig
	dialer *websocket.Dialer
	url    string
}

// NewVolcengineTTS 创建合成客户端
func NewVolcengineTTS(cfg *speechmodel.SpeechConfig) *VolcengineTTS {
	return &VolcengineTTS{
		config: cfg,
		dialer: newDialer(cfg),
		url:    ttsURL,
	}
}

type ttsRequestPayload struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format          string  `json:"format"`
	SampleRate      int     `json:"sample_rate"`
	EnableTimestamp bool    `json:"enable_timestamp"`
	SpeedRatio      float32 `json:"speed_ratio,omitempty"`
	VolumeRatio     float32 `json:"volume_ratio,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// Synthesize 合成一句台词。speaker 与 resource 不匹配时依次尝试候选组合。
func (c *VolcengineTTS) Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("TTS text is empty")
	}

	creds, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	encoding := resolveEncoding(req.Format, c.config.TTSFormat)
	speakers := resolveSpeakerCandidates(req.Voice, c.config.TTSVoice)
	var lastMismatch error

	for speakerIdx, speaker := range speakers {
		for resourceIdx, resourceID := range resolveResourceCandidates(speaker) {
			audio, err := c.synthesizeWith(ctx, creds, req, speaker, encoding, resourceID)
			if err == nil {
				if resourceIdx > 0 || speakerIdx > 0 {
					log.Printf("[TTS] voice %s succeeded with fallback resource %s", speaker, resourceID)
				}
				return audio, nil
			}
			if !isResourceMismatchError(err) {
				return nil, err
			}
			log.Printf("[TTS] voice %s resource %s mismatch: %v", speaker, resourceID, err)
			lastMismatch = err
		}
	}

	if lastMismatch != nil {
		return nil, lastMismatch
	}
	return nil, fmt.Errorf("TTS synthesis failed: no compatible resource for voices %v", speakers)
}

func (c *VolcengineTTS) synthesizeWith(ctx context.Context, creds volcCredentials, req *speechmodel.TTSRequest, speaker, encoding, resourceID string) (*speechmodel.Audio, error) {
	connectID := uuid.NewString()

	conn, err := dialVolc(ctx, c.dialer, c.url, creds, resourceID, connectID, "TTS")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	payload, uid := c.buildRequest(req, speaker, encoding)
	data, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal TTS request: %w", err)
	}
	if err := writeFrame(conn, NewClientRequest(data, NoCompression)); err != nil {
		return nil, fmt.Errorf("send TTS request: %w", err)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uid
	}

	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := readFrame(conn)
		if err != nil {
			return nil, fmt.Errorf("read TTS response: %w", err)
		}

		switch frame.Type {
		case ErrorMessage:
			return nil, fmt.Errorf("TTS error: %s", string(frame.Payload))

		case AudioOnlyServerResponse:
			audio.Write(frame.Payload)

		case FullServerResponse:
			var msg ttsServerMessage
			if len(frame.Payload) > 0 {
				if err := sonic.Unmarshal(frame.Payload, &msg); err != nil {
					log.Printf("[TTS] failed to unmarshal response payload: %v", err)
				} else {
					if msg.Code != 0 && msg.Code != 3000 {
						return nil, fmt.Errorf("TTS API error %d: %s", msg.Code, msg.Message)
					}
					if msg.ReqID != "" {
						reqID = msg.ReqID
					}
					if msg.Addition.Duration != "" {
						if parsed, err := strconv.ParseInt(msg.Addition.Duration, 10, 64); err == nil {
							duration = parsed
						}
					}
					if msg.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(msg.Data)
						if err != nil {
							return nil, fmt.Errorf("decode base64 audio chunk: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}

			finished := frame.Flags == WithEvent && frame.Event == EventSessionFinished
			if finished || frame.IsLast() || msg.Sequence < 0 {
				if audio.Len() == 0 {
					return nil, ErrEmptyAudio
				}
				if reqID == "" {
					reqID = connectID
				}
				return &speechmodel.Audio{
					SessionID: sessionID,
					Data:      audio.Bytes(),
					Duration:  duration,
					Format:    encoding,
					RequestID: reqID,
					CreatedAt: time.Now(),
				}, nil
			}

		default:
			log.Printf("[TTS] unexpected message type: %d", frame.Type)
		}
	}
}

func (c *VolcengineTTS) buildRequest(req *speechmodel.TTSRequest, speaker, encoding string) (*ttsRequestPayload, string) {
	p := &ttsRequestPayload{}

	uid := strings.TrimSpace(req.SessionID)
	if uid == "" {
		uid = uuid.NewString()
	}
	p.User.UID = uid

	p.ReqParams.Speaker = speaker
	p.ReqParams.Text = req.Text
	p.ReqParams.AudioParams = ttsAudioParams{
		Format:          encoding,
		SampleRate:      ttsSampleRate,
		EnableTimestamp: true,
	}

	speed := req.Speed
	if speed <= 0 {
		speed = c.config.TTSSpeed
	}
	if speed > 0 && speed != 1.0 {
		p.ReqParams.AudioParams.SpeedRatio = speed
	}

	volume := req.Volume
	if volume <= 0 {
		volume = c.config.TTSVolume
	}
	if volume > 0 && volume != 1.0 {
		p.ReqParams.AudioParams.VolumeRatio = volume
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = strings.TrimSpace(c.config.TTSLanguage)
	}
	p.ReqParams.Language = language
	p.ReqParams.Additions = `{"disable_markdown_filter":false}`

	return p, uid
}

// resolveEncoding wav 不支持流式返回，统一降级为 mp3。
func resolveEncoding(requested, fallback string) string {
	for _, candidate := range []string{requested, fallback} {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		switch candidate {
		case "":
			continue
		case "wav":
			return "mp3"
		default:
			return candidate
		}
	}
	return "mp3"
}

func resolveResourceCandidates(voice string) []string {
	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		// 声音复刻
		return []string{ttsResourceMega}
	}

	normalized := strings.ToLower(voice)
	for _, hint := range seedHints {
		if voice != "" && strings.Contains(normalized, hint) {
			return []string{ttsResourceSeed, ttsResourceDefault}
		}
	}
	return []string{ttsResourceDefault, ttsResourceSeed}
}

func resolveSpeakerCandidates(requested, fallback string) []string {
	var candidates []string

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if strings.EqualFold(s, "default") {
			s = strings.TrimSpace(fallback)
			if s == "" {
				return
			}
		}
		if mapped, ok := voiceAliases[strings.ToLower(s)]; ok {
			s = mapped
		}
		for _, existing := range candidates {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		candidates = append(candidates, s)
	}

	add(requested)
	add(fallback)

	if len(candidates) == 0 {
		return []string{voiceAliases["en_default"]}
	}
	return candidates
}

func isResourceMismatchError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
