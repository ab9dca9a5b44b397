package interview

import (
	"context"
	"errors"
	"sync"
)

type utterance struct {
	kind          string // say, ask
	text          string
	interruptible bool
}

// scriptedAgent replays canned answers in order.
type scriptedAgent struct {
	mu       sync.Mutex
	answers  []string
	spoken   []utterance
	listens  int
	failOn   string
	failErr  error
	panicOn  string
	boundTo  string
	blockCtx bool
}

func newScriptedAgent(answers ...string) *scriptedAgent {
	return &scriptedAgent{answers: answers}
}

func (a *scriptedAgent) BindSession(sessionID string) {
	a.mu.Lock()
	a.boundTo = sessionID
	a.mu.Unlock()
}

func (a *scriptedAgent) Say(ctx context.Context, text string, allowInterruptions bool) error {
	return a.speak(ctx, "say", text, allowInterruptions)
}

func (a *scriptedAgent) Ask(ctx context.Context, text string) error {
	return a.speak(ctx, "ask", text, true)
}

func (a *scriptedAgent) speak(ctx context.Context, kind, text string, interruptible bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.panicOn != "" && text == a.panicOn {
		panic("pipeline exploded")
	}
	if a.failOn != "" && text == a.failOn {
		return a.failErr
	}
	a.mu.Lock()
	a.spoken = append(a.spoken, utterance{kind: kind, text: text, interruptible: interruptible})
	a.mu.Unlock()
	return nil
}

func (a *scriptedAgent) ListenForAnswer(ctx context.Context) (string, error) {
	if a.blockCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.answers) == 0 {
		return "", errors.New("no more answers")
	}
	answer := a.answers[0]
	a.answers = a.answers[1:]
	a.listens++
	return answer, nil
}

func (a *scriptedAgent) texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.spoken))
	for _, u := range a.spoken {
		out = append(out, u.text)
	}
	return out
}

func (a *scriptedAgent) find(text string) (utterance, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.spoken {
		if u.text == text {
			return u, true
		}
	}
	return utterance{}, false
}
