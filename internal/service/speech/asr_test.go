package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

func TestChunkAudio(t *testing.T) {
	audio := make([]byte, asrChunkSize*2+10)
	chunks := chunkAudio(audio, asrChunkSize)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 10 {
		t.Fatalf("expected trailing chunk of 10 bytes, got %d", len(chunks[2]))
	}
	if got := chunkAudio(nil, asrChunkSize); len(got) != 0 {
		t.Fatalf("expected no chunks for empty audio, got %d", len(got))
	}
}

func TestTranscriptTextFallsBackToUtterances(t *testing.T) {
	var msg asrServerMessage
	msg.Result.Utterances = []asrUtterance{{Text: "I use"}, {Text: ""}, {Text: "technical term"}}
	if got := transcriptText(msg); got != "I use technical term" {
		t.Fatalf("transcriptText = %q", got)
	}

	msg.Result.Text = "full text"
	if got := transcriptText(msg); got != "full text" {
		t.Fatalf("transcriptText = %q", got)
	}
}

func TestBuildASRRequestDefaults(t *testing.T) {
	client := NewVolcengineASR(&speechmodel.SpeechConfig{AppID: "a", AccessToken: "b"})
	req := client.buildRequest(&speechmodel.ASRRequest{SessionID: "s1"})

	if req.Audio.Format != "pcm" {
		t.Errorf("format = %s, want pcm", req.Audio.Format)
	}
	if req.Audio.Language != "en-US" {
		t.Errorf("language = %s, want en-US", req.Audio.Language)
	}
	if req.Audio.Rate != 16000 || req.Audio.Bits != 16 || req.Audio.Channel != 1 {
		t.Errorf("unexpected audio params: %+v", req.Audio)
	}
	if req.Request.ModelName != "bigmodel" || req.Request.ResultType != "full" {
		t.Errorf("unexpected request params: %+v", req.Request)
	}
	if req.User.UID != "s1" {
		t.Errorf("uid = %s", req.User.UID)
	}
}

func TestVolcengineASRTranscribe(t *testing.T) {
	audio := make([]byte, asrChunkSize*2+100)

	server := newFakeVolcServer(t, func(t *testing.T, conn *websocket.Conn, header http.Header) {
		if header.Get("X-Api-Connect-Id") != "session-42" {
			t.Errorf("connect id = %q", header.Get("X-Api-Connect-Id"))
		}

		first, err := readFrame(conn)
		if err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		var payload asrRequestPayload
		if err := json.Unmarshal(first.Payload, &payload); err != nil {
			t.Errorf("request payload: %v", err)
			return
		}
		if payload.Audio.Language != "en-US" {
			t.Errorf("language = %s", payload.Audio.Language)
		}

		received := 0
		for {
			f, err := readFrame(conn)
			if err != nil {
				t.Errorf("read audio: %v", err)
				return
			}
			received += len(f.Payload)
			if f.IsLast() {
				break
			}
		}
		if received != len(audio) {
			t.Errorf("server received %d bytes, want %d", received, len(audio))
		}

		sendFrame(t, conn, &Frame{
			Type:          FullServerResponse,
			Flags:         PositiveSequence,
			Serialization: JSONSerialization,
			Compression:   GzipCompression,
			Sequence:      1,
			Payload:       []byte(`{"code":20000000,"result":{"text":"partial"}}`),
		})
		sendFrame(t, conn, &Frame{
			Type:          FullServerResponse,
			Flags:         NegativeSequence,
			Serialization: JSONSerialization,
			Compression:   GzipCompression,
			Sequence:      -2,
			Payload:       []byte(`{"code":20000000,"result":{"text":"I explain things in a clear way"},"audio_info":{"duration":1200}}`),
		})
	})

	client := NewVolcengineASR(testSpeechConfig())
	client.url = server.wsURL()
	client.interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Transcribe(ctx, &speechmodel.ASRRequest{SessionID: "session-42", Audio: audio})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Text != "I explain things in a clear way" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Duration != 1200 {
		t.Errorf("duration = %d", result.Duration)
	}
	if got := server.seenResources(); len(got) != 1 || got[0] != asrResourceDuration {
		t.Errorf("resources = %v", got)
	}
}

func TestVolcengineASRServerError(t *testing.T) {
	server := newFakeVolcServer(t, func(t *testing.T, conn *websocket.Conn, _ http.Header) {
		if _, err := readFrame(conn); err != nil {
			return
		}
		sendFrame(t, conn, &Frame{
			Type:          FullServerResponse,
			Flags:         PositiveSequence,
			Serialization: JSONSerialization,
			Sequence:      1,
			Payload:       []byte(`{"code":45000001,"message":"invalid audio"}`),
		})
		// 让客户端读到错误后再关闭
		time.Sleep(50 * time.Millisecond)
	})

	cfg := testSpeechConfig()
	cfg.ConcurrentMode = true
	client := NewVolcengineASR(cfg)
	client.url = server.wsURL()
	client.interval = 10 * time.Millisecond

	_, err := client.Transcribe(context.Background(), &speechmodel.ASRRequest{SessionID: "s", Audio: make([]byte, asrChunkSize*4)})
	if err == nil {
		t.Fatal("expected API error")
	}
	if got := server.seenResources(); len(got) != 1 || got[0] != asrResourceConcurrent {
		t.Errorf("resources = %v", got)
	}
}

func TestVolcengineASRRejectsEmptyAudio(t *testing.T) {
	client := NewVolcengineASR(testSpeechConfig())
	if _, err := client.Transcribe(context.Background(), &speechmodel.ASRRequest{SessionID: "s"}); err == nil {
		t.Fatal("expected error for empty audio")
	}
}
