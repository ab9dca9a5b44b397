// Package script 保存面试台词。分支逻辑在会话驱动里，脚本只提供要说的话。
package script

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVariant 未配置版本时使用
const DefaultVariant = "default"

//go:embed variants/*.yaml
var variantFS embed.FS

// Script 一个面试脚本版本
type Script struct {
	Name         string    `yaml:"name"`
	Interviewer  string    `yaml:"interviewer"`
	SystemPrompt string    `yaml:"system_prompt"`
	Intro        Intro     `yaml:"intro"`
	Questions    Questions `yaml:"questions"`
	Feedback     Feedback  `yaml:"feedback"`
	Closing      string    `yaml:"closing"`
	Keywords     Keywords  `yaml:"keywords"`
}

// Intro 开场说明及其是否允许打断
type Intro struct {
	Text               string `yaml:"text"`
	AllowInterruptions bool   `yaml:"allow_interruptions"`
}

// Questions 按播报顺序排列的问题
type Questions struct {
	AboutYourself   string   `yaml:"about_yourself"`
	Background      string   `yaml:"background"`
	Strengths       string   `yaml:"strengths"`
	CoreFollowup    string   `yaml:"core_followup"`
	ToughestProject string   `yaml:"toughest_project"`
	Challenge       string   `yaml:"challenge"`
	RapidFire       []string `yaml:"rapid_fire"`
	Outlook         []string `yaml:"outlook"`
}

// Feedback 反馈环节的提示语。
type Feedback struct {
	Offer string `yaml:"offer"`
}

// Keywords 控制分支的关键词，匹配前会转为小写。
type Keywords struct {
	Core     string `yaml:"core"`
	Feedback string `yaml:"feedback"`
}

// Load 从 YAML 文件加载脚本。
func Load(filename string) (*Script, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse 解析并校验 YAML 脚本
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Variant 按名称返回内置脚本
func Variant(name string) (*Script, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultVariant
	}

	data, err := variantFS.ReadFile("variants/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown script variant %q (available: %s)", name, strings.Join(Variants(), ", "))
	}
	return Parse(data)
}

// Variants 列出内置脚本名称
func Variants() []string {
	entries, err := variantFS.ReadDir("variants")
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Validate 检查脚本中每个必需的提示语都已填写。
func (s *Script) Validate() error {
	required := map[string]string{
		"name":                       s.Name,
		"intro.text":                 s.Intro.Text,
		"questions.about_yourself":   s.Questions.AboutYourself,
		"questions.background":       s.Questions.Background,
		"questions.strengths":        s.Questions.Strengths,
		"questions.core_followup":    s.Questions.CoreFollowup,
		"questions.toughest_project": s.Questions.ToughestProject,
		"questions.challenge":        s.Questions.Challenge,
		"feedback.offer":             s.Feedback.Offer,
		"closing":                    s.Closing,
		"keywords.core":              s.Keywords.Core,
		"keywords.feedback":          s.Keywords.Feedback,
	}

	var missing []string
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("script %q is missing %s", s.Name, strings.Join(missing, ", "))
	}

	for i, q := range append(append([]string(nil), s.Questions.RapidFire...), s.Questions.Outlook...) {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("script %q has an empty unanswered question at position %d", s.Name, i)
		}
	}

	return nil
}

// MentionsCore 回答是否触发 core 方向的追问
func (s *Script) MentionsCore(answer string) bool {
	return strings.Contains(strings.ToLower(answer), strings.ToLower(s.Keywords.Core))
}

// WantsFeedback 参与者是否接受反馈
func (s *Script) WantsFeedback(answer string) bool {
	return strings.Contains(strings.ToLower(answer), strings.ToLower(s.Keywords.Feedback))
}

// NewResolver 返回会话运行器使用的脚本查找函数。
// 指定 path 时只加载一次该文件，所有版本都使用它。
func NewResolver(path string) (func(variant string) (*Script, error), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Variant, nil
	}

	override, err := Load(path)
	if err != nil {
		return nil, err
	}
	return func(string) (*Script, error) {
		copied := *override
		return &copied, nil
	}, nil
}
