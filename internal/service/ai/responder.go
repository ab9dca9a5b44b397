package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

// ErrEmptyReply 模型返回了空内容
var ErrEmptyReply = errors.New("model returned an empty reply")

const defaultHistoryLimit = 6

// 脚本会在回应后继续，模型只需简短接话
const replyGuidance = "\n\nThe scripted interview continues right after your reply. " +
	"Answer the candidate in one or two short spoken sentences and do not ask a new question."

// Responder 在脚本没有等待回答时，用 LLM 简短回应参与者的发言。
type Responder struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
}

// ReplyRequest 描述一次回应所需的上下文
type ReplyRequest struct {
	SessionID    string
	SystemPrompt string
	Turns        []interview.Turn
	Utterance    string
}

// NewResponder 使用 Ark 配置创建回应器
func NewResponder(ctx context.Context, cfg config.AIConfig) (*Responder, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewResponderWithModel(ctx, chatModel, cfg.HistoryLimit)
}

// NewResponderWithModel 使用任意聊天模型构建 eino chain。
func NewResponderWithModel(ctx context.Context, chatModel model.ChatModel, historyLimit int) (*Responder, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile responder chain: %w", err)
	}

	if historyLimit < 1 {
		historyLimit = defaultHistoryLimit
	}
	return &Responder{chain: runnable, historyLimit: historyLimit}, nil
}

// Reply 生成一句简短回应
func (r *Responder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	input := map[string]any{
		"system":  req.SystemPrompt + replyGuidance,
		"history": r.buildHistory(req.Turns),
		"query":   req.Utterance,
	}

	response, err := r.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run responder chain: %w", err)
	}

	reply := strings.TrimSpace(response.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}

	log.Printf("[ai] reply for session=%s, length=%d", req.SessionID, len(reply))
	return reply, nil
}

// buildHistory 取最近的若干轮，面试官台词作为 assistant，回答作为 user。
func (r *Responder) buildHistory(turns []interview.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	start := 0
	if len(turns) > r.historyLimit {
		start = len(turns) - r.historyLimit
	}

	history := make([]*schema.Message, 0, 2*(len(turns)-start))
	for _, turn := range turns[start:] {
		history = append(history, schema.AssistantMessage(turn.Prompt, nil))
		if turn.Captured && turn.Answer != "" {
			history = append(history, schema.UserMessage(turn.Answer))
		}
	}
	return history
}
