package assessment

import (
	"fmt"
	"strings"
)

// KnowledgeLabel 表示对候选人专业知识的粗粒度判断。
type KnowledgeLabel string

// CommunicationLabel 表示对候选人表达能力的粗粒度判断。
type CommunicationLabel string

const (
	Strong KnowledgeLabel = "strong"
	// Moderate 不会由 Knowledge 产生，KnowledgeScore 仍保留映射
	Moderate KnowledgeLabel = "moderate"
	Weak     KnowledgeLabel = "weak"

	Good             CommunicationLabel = "good"
	NeedsImprovement CommunicationLabel = "needs improvement"
)

// 关键词区分大小写，直接匹配原始回答
const (
	knowledgeKeyword     = "technical term"
	communicationKeyword = "clear"
)

// TipThreshold 分数低于该值时给出改进建议
const TipThreshold = 3

const (
	KnowledgeTip     = "Review key concepts in your field."
	CommunicationTip = "Work on your clarity and pronunciation."
)

// Assessment 是从一条回答得出的两项标签。
type Assessment struct {
	Knowledge     KnowledgeLabel     `json:"knowledge"`
	Communication CommunicationLabel `json:"communication"`
}

// Scores 是两项标签映射出的 1-5 分。
type Scores struct {
	Knowledge     int `json:"knowledge"`
	Communication int `json:"communication"`
}

// Knowledge 仅根据是否包含 "technical term" 判断知识水平。
func Knowledge(answer string) KnowledgeLabel {
	if strings.Contains(answer, knowledgeKeyword) {
		return Strong
	}
	return Weak
}

// Communication 仅根据是否包含 "clear" 判断表达能力。
func Communication(answer string) CommunicationLabel {
	if strings.Contains(answer, communicationKeyword) {
		return Good
	}
	return NeedsImprovement
}

// KnowledgeScore 知识标签对应的分数
func KnowledgeScore(label KnowledgeLabel) int {
	switch label {
	case Strong:
		return 5
	case Moderate:
		return 3
	default:
		return 2
	}
}

// CommunicationScore 表达标签对应的分数
func CommunicationScore(label CommunicationLabel) int {
	switch label {
	case Good:
		return 5
	case NeedsImprovement:
		return 3
	default:
		return 2
	}
}

// Assess 计算一条回答的两项标签。
func Assess(answer string) Assessment {
	return Assessment{
		Knowledge:     Knowledge(answer),
		Communication: Communication(answer),
	}
}

// Scores 将标签映射为分数。
func (a Assessment) Scores() Scores {
	return Scores{
		Knowledge:     KnowledgeScore(a.Knowledge),
		Communication: CommunicationScore(a.Communication),
	}
}

// Summary 生成播报的分数句子
func (s Scores) Summary() string {
	return fmt.Sprintf("Knowledge: %d/5, Communication: %d/5.", s.Knowledge, s.Communication)
}

// Tips 返回低于 TipThreshold 的各项建议，知识在前。
func (s Scores) Tips() []string {
	var tips []string
	if s.Knowledge < TipThreshold {
		tips = append(tips, KnowledgeTip)
	}
	if s.Communication < TipThreshold {
		tips = append(tips, CommunicationTip)
	}
	return tips
}
