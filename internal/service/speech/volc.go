package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

// ErrMissingCredentials 表示火山引擎凭证不完整。
var ErrMissingCredentials = errors.New("volcengine speech credentials missing AppID or AccessToken")

type volcCredentials struct {
	appKey    string
	accessKey string
}

// resolveCredentials 返回规范化后的凭证，AccessToken 为空时回退到 APIKey。
func resolveCredentials(cfg *speechmodel.SpeechConfig) (volcCredentials, error) {
	if cfg == nil {
		return volcCredentials{}, ErrMissingCredentials
	}

	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}
	if appID == "" || token == "" {
		return volcCredentials{}, ErrMissingCredentials
	}
	return volcCredentials{appKey: appID, accessKey: token}, nil
}

func newDialer(cfg *speechmodel.SpeechConfig) *websocket.Dialer {
	timeout := 30 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &websocket.Dialer{HandshakeTimeout: timeout}
}

// dialVolc 建立带鉴权头的 WebSocket 连接。
func dialVolc(ctx context.Context, dialer *websocket.Dialer, url string, creds volcCredentials, resourceID, connectID, tag string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("X-Api-App-Key", creds.appKey)
	header.Set("X-Api-Access-Key", creds.accessKey)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("connect %s websocket: %w", tag, err)
	}
	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[%s] connected with logid: %s", tag, logid)
		}
	}
	return conn, nil
}

// writeFrame 编码并发送一帧
func writeFrame(conn *websocket.Conn, f *Frame) error {
	data, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// readFrame 读取并解码一帧
func readFrame(conn *websocket.Conn) (*Frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return ReadFrame(bytes.NewReader(data))
}
