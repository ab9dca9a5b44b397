package speech

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

const (
	asrURL = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

	asrResourceDuration   = "volc.bigasr.sauc.duration"   // 小时版
	asrResourceConcurrent = "volc.bigasr.sauc.concurrent" // 并发版

	asrCodeOK = 20000000

	// 16kHz 16bit 单声道，每包 200ms
	asrChunkSize     = 6400
	asrChunkInterval = 200 * time.Millisecond
)

// VolcengineASR 火山引擎大模型流式识别（nostream 模式，整段回答一次识别）。
type VolcengineASR struct {
	config   *speechmodel.SpeechConfig
	dialer   *websocket.Dialer
	url      string
	interval time.Duration
}

// NewVolcengineASR 创建识别客户端
func NewVolcengineASR(cfg *speechmodel.SpeechConfig) *VolcengineASR {
	return &VolcengineASR{
		config:   cfg,
		dialer:   newDialer(cfg),
		url:      asrURL,
		interval: asrChunkInterval,
	}
}

type asrRequestPayload struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text     string `json:"text"`
	Definite bool   `json:"definite"`
}

type asrServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// Transcribe 发送整段音频并等待最终结果。
func (c *VolcengineASR) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.Transcript, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("no audio data to send")
	}

	creds, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	resourceID := asrResourceDuration
	if c.config.ConcurrentMode {
		resourceID = asrResourceConcurrent
	}

	conn, err := dialVolc(ctx, c.dialer, c.url, creds, resourceID, req.SessionID, "ASR")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	payload, err := sonic.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal ASR request: %w", err)
	}
	if err := writeFrame(conn, NewClientRequest(payload, GzipCompression)); err != nil {
		return nil, fmt.Errorf("send ASR request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 收发并行，服务端提前报错时可以及时停止发送
	resultCh := make(chan *speechmodel.Transcript, 1)
	recvErrCh := make(chan error, 1)
	go func() {
		result, err := c.receive(ctx, conn, req.SessionID)
		if err != nil {
			recvErrCh <- err
			return
		}
		resultCh <- result
	}()

	sendErrCh := make(chan error, 1)
	go func() {
		sendErrCh <- c.sendAudio(ctx, conn, req.Audio)
	}()

	for {
		select {
		case err := <-sendErrCh:
			if err != nil {
				return nil, fmt.Errorf("send audio: %w", err)
			}
			sendErrCh = nil
		case result := <-resultCh:
			return result, nil
		case err := <-recvErrCh:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *VolcengineASR) buildRequest(req *speechmodel.ASRRequest) *asrRequestPayload {
	p := &asrRequestPayload{}
	p.User.UID = req.SessionID

	p.Audio.Format = req.Format
	if p.Audio.Format == "" {
		p.Audio.Format = "pcm"
	}
	p.Audio.Language = req.Language
	if p.Audio.Language == "" {
		p.Audio.Language = c.config.ASRLanguage
	}
	if p.Audio.Language == "" {
		p.Audio.Language = "en-US"
	}
	p.Audio.Codec = "raw"
	p.Audio.Rate = 16000
	p.Audio.Bits = 16
	p.Audio.Channel = 1

	p.Request.ModelName = "bigmodel"
	p.Request.EnableITN = true
	p.Request.EnablePunc = true
	p.Request.ShowUtterances = true
	p.Request.ResultType = "full"
	p.Request.EndWindowSize = 800
	return p
}

// chunkAudio 按固定大小切包
func chunkAudio(audio []byte, size int) [][]byte {
	var chunks [][]byte
	for start := 0; start < len(audio); start += size {
		end := start + size
		if end > len(audio) {
			end = len(audio)
		}
		chunks = append(chunks, audio[start:end])
	}
	return chunks
}

func (c *VolcengineASR) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	chunks := chunkAudio(audio, asrChunkSize)
	// 首帧占用序号 1，音频从 2 开始
	sequence := int32(2)

	for i, chunk := range chunks {
		last := i == len(chunks)-1
		if err := writeFrame(conn, NewAudioRequest(chunk, sequence, last, GzipCompression)); err != nil {
			return fmt.Errorf("send audio chunk %d: %w", sequence, err)
		}
		sequence++
		if last {
			break
		}

		// 模拟实时音频流
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.interval):
		}
	}
	return nil
}

func (c *VolcengineASR) receive(ctx context.Context, conn *websocket.Conn, sessionID string) (*speechmodel.Transcript, error) {
	var (
		text     string
		duration int64
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := readFrame(conn)
		if err != nil {
			return nil, fmt.Errorf("read ASR response: %w", err)
		}

		switch frame.Type {
		case ErrorMessage:
			return nil, fmt.Errorf("ASR error %d: %s", frame.ErrorCode, string(frame.Payload))

		case FullServerResponse:
			var msg asrServerMessage
			if err := sonic.Unmarshal(frame.Payload, &msg); err != nil {
				log.Printf("[ASR] failed to unmarshal response: %v", err)
				continue
			}
			if msg.Code != 0 && msg.Code != asrCodeOK {
				return nil, fmt.Errorf("ASR API error %d: %s", msg.Code, msg.Message)
			}

			if candidate := transcriptText(msg); candidate != "" {
				text = candidate
			}
			if msg.AudioInfo.Duration > 0 {
				duration = msg.AudioInfo.Duration
			}

			if frame.IsLast() || msg.Sequence < 0 {
				if text == "" {
					log.Printf("[ASR] empty transcript for session %s", sessionID)
				}
				return &speechmodel.Transcript{
					SessionID:  sessionID,
					Text:       text,
					Confidence: estimateConfidence(text),
					Duration:   duration,
					RequestID:  sessionID,
					CreatedAt:  time.Now(),
				}, nil
			}
		}
	}
}

func transcriptText(msg asrServerMessage) string {
	if msg.Result.Text != "" {
		return msg.Result.Text
	}
	parts := make([]string, 0, len(msg.Result.Utterances))
	for _, u := range msg.Result.Utterances {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}

func estimateConfidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return 0.95
}
