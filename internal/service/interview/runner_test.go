package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-interview/backend/internal/metrics"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/status"
)

func TestRunnerCompletesAndClearsStatus(t *testing.T) {
	tracker := status.NewTracker()
	recorder := metrics.New()
	runner := NewRunner(NewRegistry(), tracker, recorder, nil)

	agent := newScriptedAgent("a", "b", "c", "d", "e", "no")
	session, err := runner.Run(context.Background(), CreateParams{RoomName: "room-7", ParticipantID: "bob"}, agent)
	require.NoError(t, err)

	assert.Equal(t, interview.StateCompleted, session.State)
	assert.Equal(t, "default", session.Variant)
	assert.Equal(t, session.ID, agent.boundTo)
	assert.False(t, tracker.Snapshot().Running)
	assert.Nil(t, tracker.Snapshot().ConnectedRoom)

	expected := `
# HELP interview_sessions_active Number of interview sessions currently running
# TYPE interview_sessions_active gauge
interview_sessions_active 0
`
	assert.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "interview_sessions_active"))
}

func TestRunnerAbortsOnCancelAndClearsStatus(t *testing.T) {
	tracker := status.NewTracker()
	runner := NewRunner(NewRegistry(), tracker, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	agent := newScriptedAgent()
	agent.blockCtx = true

	done := make(chan struct{})
	var (
		session interview.Session
		err     error
	)
	go func() {
		defer close(done)
		session, err = runner.Run(ctx, CreateParams{RoomName: "room-8"}, agent)
	}()

	require.Eventually(t, func() bool { return tracker.Snapshot().Running }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	require.Error(t, err)
	assert.Equal(t, interview.StateAborted, session.State)
	assert.Contains(t, session.AbortReason, "participant disconnected")
	assert.False(t, tracker.Snapshot().Running)
}

func TestRunnerRecoversPanic(t *testing.T) {
	tracker := status.NewTracker()
	recorder := metrics.New()
	runner := NewRunner(NewRegistry(), tracker, recorder, nil)

	agent := newScriptedAgent("a")
	agent.panicOn = "Cool! What inspired you to pursue this field?"

	session, err := runner.Run(context.Background(), CreateParams{RoomName: "room-9"}, agent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, interview.StateAborted, session.State)
	assert.False(t, tracker.Snapshot().Running)

	expected := `
# HELP interview_sessions_finished_total Total number of interview sessions that ended, by terminal state
# TYPE interview_sessions_finished_total counter
interview_sessions_finished_total{state="aborted"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "interview_sessions_finished_total"))
}

func TestRunnerRejectsUnknownVariant(t *testing.T) {
	tracker := status.NewTracker()
	runner := NewRunner(NewRegistry(), tracker, nil, nil)

	_, err := runner.Run(context.Background(), CreateParams{RoomName: "room", Variant: "nope"}, newScriptedAgent())
	require.Error(t, err)
	assert.False(t, tracker.Snapshot().Running)
}

func TestRunnerParticipantLeftIsDisconnect(t *testing.T) {
	runner := NewRunner(NewRegistry(), status.NewTracker(), nil, nil)

	agent := newScriptedAgent("a")
	agent.failOn = "Cool! What inspired you to pursue this field?"
	agent.failErr = fmt.Errorf("socket gone: %w", ErrParticipantLeft)

	session, err := runner.Run(context.Background(), CreateParams{RoomName: "room-10"}, agent)
	require.ErrorIs(t, err, ErrParticipantLeft)
	assert.Equal(t, interview.StateAborted, session.State)
	assert.True(t, strings.HasPrefix(session.AbortReason, "participant disconnected: "), session.AbortReason)
}

func TestAbortReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"cancel", fmt.Errorf("listen: %w", context.Canceled), "participant disconnected: listen: context canceled"},
		{"left", fmt.Errorf("listen: %w", ErrParticipantLeft), "participant disconnected: listen: participant left"},
		{"deadline", context.DeadlineExceeded, "session timed out: context deadline exceeded"},
		{"other", errors.New("tts down"), "tts down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, abortReason(tt.err))
		})
	}
}

func TestRunnerOlderSessionInSameRoomKeepsNewerStatus(t *testing.T) {
	tracker := status.NewTracker()
	runner := NewRunner(NewRegistry(), tracker, nil, nil)

	start := func(agent *scriptedAgent) (context.CancelFunc, <-chan struct{}) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = runner.Run(ctx, CreateParams{RoomName: "room-x"}, agent)
		}()
		require.Eventually(t, func() bool {
			agent.mu.Lock()
			defer agent.mu.Unlock()
			return agent.boundTo != ""
		}, time.Second, 5*time.Millisecond)
		return cancel, done
	}

	older := newScriptedAgent()
	older.blockCtx = true
	cancelOlder, olderDone := start(older)

	newer := newScriptedAgent()
	newer.blockCtx = true
	cancelNewer, newerDone := start(newer)

	cancelOlder()
	<-olderDone
	snap := tracker.Snapshot()
	require.True(t, snap.Running, "older session must not clear the newer one")
	assert.Equal(t, "room-x", *snap.ConnectedRoom)

	cancelNewer()
	<-newerDone
	assert.False(t, tracker.Snapshot().Running)
}
