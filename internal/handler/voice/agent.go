package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-interview/backend/internal/metrics"
	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	interviewservice "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/speech"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second

	// 16kHz 16bit 单声道约 5 分钟
	maxAnswerAudio = 32000 * 300
)

var (
	// ErrConnectionClosed 参与者断开，脚本据此记为 participant disconnected
	ErrConnectionClosed = fmt.Errorf("participant connection closed: %w", interviewservice.ErrParticipantLeft)
)

// Responder 对脚本没有等待的发言做简短回应
type Responder interface {
	Reply(ctx context.Context, req ai.ReplyRequest) (string, error)
}

// TurnSource 读取会话已有的轮次，供回应器作为上下文
type TurnSource func(ctx context.Context, sessionID string) ([]interviewmodel.Turn, error)

type listenResult struct {
	text string
	err  error
}

type agentConfig struct {
	room         string
	voice        string
	language     string
	systemPrompt string
	recognizer   speech.Recognizer
	synthesizer  speech.Synthesizer
	responder    Responder
	turns        TurnSource
	metrics      *metrics.Recorder
}

// wsAgent 把一个参与者 WebSocket 连接包装成面试脚本的 Agent。
type wsAgent struct {
	conn *websocket.Conn
	cfg  agentConfig

	writeMu sync.Mutex

	mu            sync.Mutex
	sessionID     string
	pending       chan listenResult
	armed         chan listenResult
	current       string
	interruptible bool
	audio         bytes.Buffer
	audioFormat   string
	language      string

	closed    chan struct{}
	closeOnce sync.Once
	replies   sync.WaitGroup
}

func newAgent(conn *websocket.Conn, cfg agentConfig) *wsAgent {
	return &wsAgent{
		conn:     conn,
		cfg:      cfg,
		language: cfg.language,
		closed:   make(chan struct{}),
	}
}

// BindSession 记录会话 ID 并通知客户端会话开始
func (a *wsAgent) BindSession(sessionID string) {
	a.mu.Lock()
	a.sessionID = sessionID
	a.mu.Unlock()

	a.sendEvent(StateEvent{Type: eventState, State: string(interviewmodel.StateRunning)})
}

func (a *wsAgent) session() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Say 说一句话，返回时已交给客户端播放。
func (a *wsAgent) Say(ctx context.Context, text string, allowInterruptions bool) error {
	return a.speak(ctx, "say", text, allowInterruptions)
}

// Ask 说一句不等待回答的问题
func (a *wsAgent) Ask(ctx context.Context, text string) error {
	return a.speak(ctx, "ask", text, true)
}

func (a *wsAgent) speak(ctx context.Context, kind, text string, interruptible bool) error {
	select {
	case <-a.closed:
		return ErrConnectionClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	// 回应不改变脚本台词的打断策略
	if kind != "reply" {
		a.current = text
		a.interruptible = interruptible
	}
	language := a.language
	a.mu.Unlock()

	event := UtteranceEvent{
		Type:          eventUtterance,
		Kind:          kind,
		Text:          text,
		Interruptible: interruptible,
	}

	if a.cfg.synthesizer != nil {
		audio, err := a.cfg.synthesizer.SynthesizeToBuffer(ctx, a.session(), text, a.cfg.voice, language)
		if err != nil {
			return fmt.Errorf("synthesize: %w", err)
		}
		if len(audio.Data) > 0 {
			event.AudioData = base64.StdEncoding.EncodeToString(audio.Data)
			event.Format = audio.Format
		}
	}

	if err := a.writeEvent(event); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

// ExpectAnswer 在问题播放前就开始接收回答
func (a *wsAgent) ExpectAnswer() {
	ch := make(chan listenResult, 1)
	a.mu.Lock()
	a.armed = ch
	a.pending = ch
	a.mu.Unlock()
}

// ListenForAnswer 阻塞直到下一段回答到达、ctx 结束或连接断开。
func (a *wsAgent) ListenForAnswer(ctx context.Context) (string, error) {
	a.mu.Lock()
	ch := a.armed
	a.armed = nil
	if ch == nil {
		ch = make(chan listenResult, 1)
		a.pending = ch
	}
	a.mu.Unlock()

	release := func() {
		a.mu.Lock()
		if a.pending == ch {
			a.pending = nil
		}
		a.mu.Unlock()
	}

	select {
	case res := <-ch:
		return res.text, res.err
	case <-ctx.Done():
		release()
		return "", ctx.Err()
	case <-a.closed:
		release()
		return "", ErrConnectionClosed
	}
}

// readLoop 顺序处理入站消息，连接断开时调用 onClose。
func (a *wsAgent) readLoop(ctx context.Context, onClose func()) {
	defer func() {
		a.closeOnce.Do(func() { close(a.closed) })
		onClose()
	}()

	a.conn.SetReadDeadline(time.Now().Add(readTimeout))
	a.conn.SetPongHandler(func(string) error {
		return a.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg inboundMessage
		if err := a.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[voice] room=%s read error: %v", a.cfg.room, err)
			}
			return
		}
		a.conn.SetReadDeadline(time.Now().Add(readTimeout))

		if sid := a.session(); msg.SessionID != "" && sid != "" && msg.SessionID != sid {
			a.sendError("session mismatch")
			continue
		}

		a.handleMessage(ctx, &msg)
	}
}

func (a *wsAgent) handleMessage(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case inboundAudio:
		a.handleAudio(ctx, msg.Data)
	case inboundText:
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			a.sendError("invalid text payload")
			return
		}
		if answer := strings.TrimSpace(text.Text); answer != "" {
			a.deliver(ctx, answer, 0)
		}
	case inboundInterrupt:
		a.handleInterrupt()
	default:
		a.sendError("unsupported message type: " + msg.Type)
	}
}

func (a *wsAgent) handleAudio(ctx context.Context, raw json.RawMessage) {
	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		a.sendError("invalid audio payload")
		return
	}
	if a.cfg.recognizer == nil {
		a.sendError("audio is not supported by the text speech backend")
		return
	}

	a.mu.Lock()
	if a.audio.Len()+len(audio.AudioData) > maxAnswerAudio {
		size := a.audio.Len() + len(audio.AudioData)
		a.audio.Reset()
		a.mu.Unlock()
		log.Printf("[voice] room=%s answer audio too long (%d bytes), discarded", a.cfg.room, size)
		a.sendError(fmt.Sprintf("answer audio exceeds %d bytes, please answer again", maxAnswerAudio))
		return
	}
	a.audio.Write(audio.AudioData)
	if audio.Format != "" {
		a.audioFormat = audio.Format
	}
	if audio.Language != "" {
		a.language = audio.Language
	}
	if !audio.IsFinal {
		a.mu.Unlock()
		return
	}
	data := append([]byte(nil), a.audio.Bytes()...)
	a.audio.Reset()
	format := a.audioFormat
	language := a.language
	a.mu.Unlock()

	if len(data) == 0 {
		return
	}
	if format == "" {
		format = "pcm"
	}

	log.Printf("[voice] room=%s transcribing %d bytes format=%s", a.cfg.room, len(data), format)
	transcript, err := a.cfg.recognizer.TranscribeBuffer(ctx, a.session(), data, format, language)
	if err != nil {
		a.fail(fmt.Errorf("transcribe: %w", err))
		return
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return
	}
	a.deliver(ctx, strings.TrimSpace(transcript.Text), transcript.Confidence)
}

// deliver 把回答交给等待中的 ListenForAnswer，没有等待者时交给回应器。
func (a *wsAgent) deliver(ctx context.Context, text string, confidence float64) {
	a.mu.Lock()
	ch := a.pending
	a.pending = nil
	a.mu.Unlock()

	a.sendEvent(TranscriptEvent{Type: eventTranscript, Text: text, Confidence: confidence, Claimed: ch != nil})

	if ch != nil {
		ch <- listenResult{text: text}
		return
	}
	a.handleUnclaimed(ctx, text)
}

// fail 识别失败时让等待中的脚本中止
func (a *wsAgent) fail(err error) {
	log.Printf("[voice] room=%s %v", a.cfg.room, err)
	a.sendError(err.Error())

	a.mu.Lock()
	ch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if ch != nil {
		ch <- listenResult{err: err}
	}
}

func (a *wsAgent) handleUnclaimed(ctx context.Context, text string) {
	if a.cfg.responder == nil {
		a.cfg.metrics.Unclaimed("dropped")
		log.Printf("[voice] room=%s dropped unclaimed transcript (%d chars)", a.cfg.room, len(text))
		return
	}

	sessionID := a.session()
	a.replies.Add(1)
	go func() {
		defer a.replies.Done()

		var turns []interviewmodel.Turn
		if a.cfg.turns != nil && sessionID != "" {
			if loaded, err := a.cfg.turns(ctx, sessionID); err == nil {
				turns = loaded
			}
		}

		reply, err := a.cfg.responder.Reply(ctx, ai.ReplyRequest{
			SessionID:    sessionID,
			SystemPrompt: a.cfg.systemPrompt,
			Turns:        turns,
			Utterance:    text,
		})
		if err != nil {
			a.cfg.metrics.Unclaimed("dropped")
			log.Printf("[voice] room=%s responder failed: %v", a.cfg.room, err)
			return
		}

		if err := a.speak(ctx, "reply", reply, true); err != nil {
			a.cfg.metrics.Unclaimed("dropped")
			log.Printf("[voice] room=%s speak reply failed: %v", a.cfg.room, err)
			return
		}
		a.cfg.metrics.Unclaimed("replied")
		a.cfg.metrics.Utterance("reply")
	}()
}

func (a *wsAgent) handleInterrupt() {
	a.mu.Lock()
	text, interruptible := a.current, a.interruptible
	a.mu.Unlock()

	if text != "" && interruptible {
		a.sendEvent(map[string]any{"type": eventInterrupted, "text": text})
		return
	}
	a.sendEvent(map[string]any{"type": eventIgnored, "text": text})
}

// waitReplies 等待进行中的回应结束
func (a *wsAgent) waitReplies() {
	a.replies.Wait()
}

func (a *wsAgent) writeEvent(data any) error {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: a.session(),
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	return a.writeJSON(msg)
}

func (a *wsAgent) sendEvent(data any) {
	if err := a.writeEvent(data); err != nil {
		log.Printf("[voice] room=%s write event failed: %v", a.cfg.room, err)
	}
}

func (a *wsAgent) sendError(message string) {
	msg := outgoingMessage{
		Type:      "error",
		SessionID: a.session(),
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := a.writeJSON(msg); err != nil {
		log.Printf("[voice] room=%s write error failed: %v", a.cfg.room, err)
	}
}

func (a *wsAgent) writeJSON(v any) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return a.conn.WriteJSON(v)
}

// closeNormally 发送关闭帧，让客户端知道面试已结束
func (a *wsAgent) closeNormally(reason string) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	if err := a.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Printf("[voice] room=%s close failed: %v", a.cfg.room, err)
	}
}

// pingLoop 定期发送 ping
func (a *wsAgent) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.closed:
			return
		case <-ticker.C:
			a.writeMu.Lock()
			err := a.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			a.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
