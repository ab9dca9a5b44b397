package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// 火山引擎语音 WebSocket 二进制帧：4 字节头 + 可选序号 + 可选事件元数据 + 长度前缀的 payload。

const protocolVersion = 0b0001

// MessageType 帧类型
type MessageType uint8

const (
	FullClientRequest       MessageType = 0b0001
	AudioOnlyRequest        MessageType = 0b0010
	FullServerResponse      MessageType = 0b1001
	AudioOnlyServerResponse MessageType = 0b1011
	ErrorMessage            MessageType = 0b1111
)

// MessageFlags 帧标志，低两位描述序号，第三位表示携带事件。
type MessageFlags uint8

const (
	NoSequence       MessageFlags = 0b0000
	PositiveSequence MessageFlags = 0b0001
	LastNoSequence   MessageFlags = 0b0010
	NegativeSequence MessageFlags = 0b0011
	WithEvent        MessageFlags = 0b0100

	sequenceMask MessageFlags = 0b0011
)

// EventType 服务端事件
type EventType int32

const (
	EventNone               EventType = 0
	EventStartConnection    EventType = 1
	EventFinishConnection   EventType = 2
	EventConnectionStarted  EventType = 50
	EventConnectionFailed   EventType = 51
	EventConnectionFinished EventType = 52
	EventSessionStarted     EventType = 150
	EventSessionFinished    EventType = 152
	EventSessionFailed      EventType = 153
)

// Serialization payload 序列化方式
type Serialization uint8

const (
	RawSerialization  Serialization = 0b0000
	JSONSerialization Serialization = 0b0001
)

// Compression payload 压缩方式
type Compression uint8

const (
	NoCompression   Compression = 0b0000
	GzipCompression Compression = 0b0001
)

// Frame 是一帧解码后的消息，Payload 始终是解压后的内容。
type Frame struct {
	Type          MessageType
	Flags         MessageFlags
	Serialization Serialization
	Compression   Compression
	Sequence      int32
	Event         EventType
	SessionID     string
	ConnectID     string
	ErrorCode     uint32
	Payload       []byte
}

// NewClientRequest 构造携带 JSON 参数的首帧。
func NewClientRequest(payload []byte, compression Compression) *Frame {
	return &Frame{
		Type:          FullClientRequest,
		Flags:         NoSequence,
		Serialization: JSONSerialization,
		Compression:   compression,
		Payload:       payload,
	}
}

// NewAudioRequest 构造音频帧；最后一包的序号取负。
func NewAudioRequest(audio []byte, sequence int32, last bool, compression Compression) *Frame {
	f := &Frame{
		Type:          AudioOnlyRequest,
		Serialization: RawSerialization,
		Compression:   compression,
		Sequence:      sequence,
		Payload:       audio,
	}

	switch {
	case last && sequence != 0:
		f.Flags = NegativeSequence
		f.Sequence = -sequence
	case last:
		f.Flags = LastNoSequence
	case sequence > 0:
		f.Flags = PositiveSequence
	default:
		f.Flags = NoSequence
	}
	return f
}

// IsLast 判断是否为最后一包
func (f *Frame) IsLast() bool {
	switch f.Flags & sequenceMask {
	case LastNoSequence, NegativeSequence:
		return true
	}
	return false
}

func (f *Frame) hasSequence() bool {
	switch f.Flags & sequenceMask {
	case PositiveSequence, NegativeSequence:
		return true
	}
	return false
}

func (f *Frame) hasEvent() bool {
	return f.Flags&WithEvent == WithEvent
}

// MarshalBinary 编码整帧，按 Compression 压缩 payload。
func (f *Frame) MarshalBinary() ([]byte, error) {
	payload, err := compress(f.Payload, f.Compression)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write([]byte{
		protocolVersion<<4 | 0b0001,
		uint8(f.Type)<<4 | uint8(f.Flags),
		uint8(f.Serialization)<<4 | uint8(f.Compression),
		0x00,
	})

	if f.hasSequence() {
		writeUint32(&buf, uint32(f.Sequence))
	}

	if f.hasEvent() {
		writeUint32(&buf, uint32(f.Event))
		if !eventSkipsSessionID(f.Event) {
			writeSized(&buf, f.SessionID)
		}
		if eventHasConnectID(f.Event) {
			writeSized(&buf, f.ConnectID)
		}
	}

	if f.Type == ErrorMessage {
		writeUint32(&buf, f.ErrorCode)
	}

	writeUint32(&buf, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// ReadFrame 从 r 解码一帧并解压 payload。
func ReadFrame(r io.Reader) (*Frame, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if version := head[0] >> 4; version != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", version)
	}

	f := &Frame{
		Type:          MessageType(head[1] >> 4),
		Flags:         MessageFlags(head[1] & 0x0F),
		Serialization: Serialization(head[2] >> 4),
		Compression:   Compression(head[2] & 0x0F),
	}

	// header size 以 4 字节为单位，多出的扩展头直接跳过
	if extra := int(head[0]&0x0F)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, fmt.Errorf("read extended header: %w", err)
		}
	}

	if f.hasSequence() {
		seq, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
		f.Sequence = int32(seq)
	}

	if f.hasEvent() {
		event, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		f.Event = EventType(int32(event))

		if !eventSkipsSessionID(f.Event) {
			if f.SessionID, err = readSized(r); err != nil {
				return nil, fmt.Errorf("read session id: %w", err)
			}
		}
		if eventHasConnectID(f.Event) {
			if f.ConnectID, err = readSized(r); err != nil {
				return nil, fmt.Errorf("read connect id: %w", err)
			}
		}
	}

	if f.Type == ErrorMessage {
		code, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
		f.ErrorCode = code
	}

	size, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if size > 0 {
		raw := make([]byte, size)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("read payload (expected %d bytes): %w", size, err)
		}
		if f.Payload, err = decompress(raw, f.Compression); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func eventSkipsSessionID(event EventType) bool {
	switch event {
	case EventStartConnection, EventFinishConnection,
		EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}

func eventHasConnectID(event EventType) bool {
	switch event {
	case EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeSized(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readSized(r io.Reader) (string, error) {
	size, err := readUint32(r)
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func compress(data []byte, method Compression) ([]byte, error) {
	switch method {
	case NoCompression:
		return data, nil
	case GzipCompression:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("gzip write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip close: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression method: %d", method)
	}
}

func decompress(data []byte, method Compression) ([]byte, error) {
	switch method {
	case NoCompression:
		return data, nil
	case GzipCompression:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("gzip read: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression method: %d", method)
	}
}
