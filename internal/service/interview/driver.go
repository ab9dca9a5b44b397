package interview

import (
	"context"
	"fmt"
	"log"

	"github.com/zhouzirui/z-interview/backend/internal/analysis/assessment"
	"github.com/zhouzirui/z-interview/backend/internal/metrics"
	"github.com/zhouzirui/z-interview/backend/internal/script"
)

// Agent is the voice pipeline as seen by the script. Say and Ask return once
// the utterance has been handed to the pipeline; ListenForAnswer blocks until
// the next transcribed answer arrives. None of them retry.
type Agent interface {
	Say(ctx context.Context, text string, allowInterruptions bool) error
	ListenForAnswer(ctx context.Context) (string, error)
	Ask(ctx context.Context, text string) error
}

// SessionAware agents are told which session they are serving before the
// first utterance.
type SessionAware interface {
	BindSession(sessionID string)
}

// AnswerExpecter agents start accepting an answer before the question is
// spoken.
type AnswerExpecter interface {
	ExpectAnswer()
}

// Driver runs the linear interview script against one agent.
type Driver struct {
	script   *script.Script
	registry *Registry
	metrics  *metrics.Recorder
}

// NewDriver builds a driver for one script variant.
func NewDriver(s *script.Script, registry *Registry, recorder *metrics.Recorder) *Driver {
	return &Driver{script: s, registry: registry, metrics: recorder}
}

// Script returns the script the driver speaks.
func (d *Driver) Script() *script.Script {
	return d.script
}

// Run executes the script for sessionID. Any agent error stops the script and
// is returned unchanged apart from wrapping.
func (d *Driver) Run(ctx context.Context, agent Agent, sessionID string) error {
	s := d.script
	q := s.Questions

	if err := d.say(ctx, agent, sessionID, s.Intro.Text, s.Intro.AllowInterruptions); err != nil {
		return err
	}

	response, responseTurn, err := d.question(ctx, agent, sessionID, q.AboutYourself)
	if err != nil {
		return err
	}
	backgroundResponse, _, err := d.question(ctx, agent, sessionID, q.Background)
	if err != nil {
		return err
	}
	if _, _, err := d.question(ctx, agent, sessionID, q.Strengths); err != nil {
		return err
	}

	if s.MentionsCore(backgroundResponse) {
		// follow-up is not awaited
		if err := d.say(ctx, agent, sessionID, q.CoreFollowup, true); err != nil {
			return err
		}
	}

	if _, _, err := d.question(ctx, agent, sessionID, q.ToughestProject); err != nil {
		return err
	}
	if _, _, err := d.question(ctx, agent, sessionID, q.Challenge); err != nil {
		return err
	}

	for _, text := range q.RapidFire {
		if err := d.ask(ctx, agent, sessionID, text); err != nil {
			return err
		}
	}

	// Only the first answer is assessed.
	result := assessment.Assess(response)
	if err := d.registry.RecordAssessment(ctx, sessionID, responseTurn, result); err != nil {
		return fmt.Errorf("record assessment: %w", err)
	}
	log.Printf("[interview] session=%s assessment knowledge=%s communication=%s", sessionID, result.Knowledge, result.Communication)

	for _, text := range q.Outlook {
		if err := d.ask(ctx, agent, sessionID, text); err != nil {
			return err
		}
	}

	feedbackResponse, _, err := d.question(ctx, agent, sessionID, s.Feedback.Offer)
	if err != nil {
		return err
	}

	if s.WantsFeedback(feedbackResponse) {
		scores := result.Scores()
		if err := d.registry.RecordScores(ctx, sessionID, scores); err != nil {
			return fmt.Errorf("record scores: %w", err)
		}
		if err := d.say(ctx, agent, sessionID, scores.Summary(), true); err != nil {
			return err
		}
		for _, tip := range scores.Tips() {
			if err := d.say(ctx, agent, sessionID, tip, true); err != nil {
				return err
			}
		}
	}

	return d.say(ctx, agent, sessionID, s.Closing, true)
}

func (d *Driver) say(ctx context.Context, agent Agent, sessionID, text string, interruptible bool) error {
	if _, err := d.registry.AppendTurn(ctx, sessionID, text, interruptible); err != nil {
		return fmt.Errorf("log prompt: %w", err)
	}
	if err := agent.Say(ctx, text, interruptible); err != nil {
		return fmt.Errorf("say %q: %w", text, err)
	}
	d.metrics.Utterance("say")
	return nil
}

func (d *Driver) ask(ctx context.Context, agent Agent, sessionID, text string) error {
	if _, err := d.registry.AppendTurn(ctx, sessionID, text, true); err != nil {
		return fmt.Errorf("log prompt: %w", err)
	}
	if err := agent.Ask(ctx, text); err != nil {
		return fmt.Errorf("ask %q: %w", text, err)
	}
	d.metrics.Utterance("ask")
	return nil
}

// question speaks text and waits for the answer.
func (d *Driver) question(ctx context.Context, agent Agent, sessionID, text string) (string, int, error) {
	turn, err := d.registry.AppendTurn(ctx, sessionID, text, true)
	if err != nil {
		return "", 0, fmt.Errorf("log prompt: %w", err)
	}
	if expecter, ok := agent.(AnswerExpecter); ok {
		expecter.ExpectAnswer()
	}
	if err := agent.Say(ctx, text, true); err != nil {
		return "", 0, fmt.Errorf("say %q: %w", text, err)
	}
	d.metrics.Utterance("say")

	answer, err := agent.ListenForAnswer(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("listen after %q: %w", text, err)
	}
	d.metrics.AnswerCaptured()

	if err := d.registry.RecordAnswer(ctx, sessionID, turn, answer); err != nil {
		return "", 0, fmt.Errorf("log answer: %w", err)
	}
	return answer, turn, nil
}
