package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Speech    SpeechConfig
	Interview InterviewConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config

	if err := parseEnv(&cfg.Server); err != nil {
		return nil, err
	}
	if err := cfg.Server.normalize(); err != nil {
		return nil, err
	}

	if err := parseEnv(&cfg.AI); err != nil {
		return nil, err
	}
	if cfg.AI.HistoryLimit < 1 {
		cfg.AI.HistoryLimit = 1
	}

	if err := parseEnv(&cfg.Speech); err != nil {
		return nil, err
	}
	cfg.Speech.applyFallbacks()

	if err := parseEnv(&cfg.Interview); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置：面试 API 与状态服务分别监听。
type ServerConfig struct {
	Port       string `env:"PORT" envDefault:"8080"`
	StatusPort string `env:"STATUS_PORT" envDefault:"5000"`

	Addr       string `env:"-"`
	StatusAddr string `env:"-"`
}

func (c *ServerConfig) normalize() error {
	addr, err := listenAddr("PORT", c.Port)
	if err != nil {
		return err
	}
	statusAddr, err := listenAddr("STATUS_PORT", c.StatusPort)
	if err != nil {
		return err
	}
	c.Addr, c.StatusAddr = addr, statusAddr
	return nil
}

// listenAddr 允许传入 "8080"、":8080" 或 "127.0.0.1:8080"。
func listenAddr(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ":") {
		return value, nil
	}
	if value == "" || strings.Contains(value, " ") {
		return "", fmt.Errorf("invalid %s value: %q", key, value)
	}
	return ":" + value, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string   `env:"ARK_API_KEY"`
	AccessKey   string   `env:"ARK_ACCESS_KEY"`
	SecretKey   string   `env:"ARK_SECRET_KEY"`
	Model       string   `env:"ARK_MODEL"`
	BaseURL     string   `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string   `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature *float64 `env:"ARK_TEMPERATURE"`
	TopP        *float64 `env:"ARK_TOP_P"`
	MaxTokens   *int     `env:"ARK_MAX_TOKENS"`

	// 面试脚本未在等待回答时，参与者的发言交给 LLM 简短回应
	ResponderEnabled bool `env:"AI_RESPONDER_ENABLED" envDefault:"true"`
	HistoryLimit     int  `env:"AI_RESPONDER_HISTORY_LIMIT" envDefault:"6"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_MODEL with ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	Backend        string  `env:"SPEECH_BACKEND" envDefault:"auto"`
	AppID          string  `env:"SPEECH_APP_ID"`
	AccessToken    string  `env:"SPEECH_ACCESS_TOKEN"`
	APIKey         string  `env:"SPEECH_API_KEY"`
	ConcurrentMode bool    `env:"SPEECH_ASR_CONCURRENT"`
	ASRLanguage    string  `env:"SPEECH_ASR_LANGUAGE" envDefault:"en-US"`
	TTSVoice       string  `env:"SPEECH_TTS_VOICE" envDefault:"en_default"`
	TTSSpeed       float32 `env:"SPEECH_TTS_SPEED" envDefault:"1.0"`
	TTSVolume      float32 `env:"SPEECH_TTS_VOLUME" envDefault:"1.0"`
	TTSLanguage    string  `env:"SPEECH_TTS_LANGUAGE" envDefault:"en-US"`
	TTSFormat      string  `env:"SPEECH_TTS_FORMAT" envDefault:"mp3"`
	Timeout        int     `env:"SPEECH_TIMEOUT" envDefault:"30"`

	ArkAPIKey string `env:"ARK_API_KEY" json:"-"`
}

// applyFallbacks 没有专门的语音凭证时沿用 Ark API Key。
func (c *SpeechConfig) applyFallbacks() {
	c.AppID = strings.TrimSpace(c.AppID)
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	c.APIKey = strings.TrimSpace(c.APIKey)

	if c.AccessToken == "" {
		c.AccessToken = c.APIKey
	}
	if c.AccessToken == "" {
		c.AccessToken = strings.TrimSpace(c.ArkAPIKey)
	}
}

// Enabled 表示凭证是否齐全。
func (c SpeechConfig) Enabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}

// Model 转换为语音服务使用的配置结构。
func (c SpeechConfig) Model() *speechmodel.SpeechConfig {
	return &speechmodel.SpeechConfig{
		AppID:          c.AppID,
		AccessToken:    c.AccessToken,
		APIKey:         c.APIKey,
		ConcurrentMode: c.ConcurrentMode,
		ASRLanguage:    c.ASRLanguage,
		TTSVoice:       c.TTSVoice,
		TTSSpeed:       c.TTSSpeed,
		TTSVolume:      c.TTSVolume,
		TTSLanguage:    c.TTSLanguage,
		TTSFormat:      c.TTSFormat,
		Timeout:        c.Timeout,
	}
}

// InterviewConfig 描述面试脚本相关配置。
type InterviewConfig struct {
	Variant            string        `env:"INTERVIEW_SCRIPT_VARIANT" envDefault:"default"`
	ScriptPath         string        `env:"INTERVIEW_SCRIPT_PATH"`
	DefaultInterviewer string        `env:"INTERVIEW_DEFAULT_INTERVIEWER" envDefault:"katrina"`
	Language           string        `env:"INTERVIEW_LANGUAGE" envDefault:"en-US"`
	MaxDuration        time.Duration `env:"INTERVIEW_MAX_DURATION" envDefault:"30m"`
}
