package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderSessionLifecycle(t *testing.T) {
	r := New()

	r.SessionStarted()
	r.SessionStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(r.sessionsActive))

	r.SessionFinished("completed", 90*time.Second)
	r.SessionFinished("aborted", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.sessionsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionsFinished.WithLabelValues("aborted")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.SessionStarted()
	r.SessionFinished("completed", time.Second)
	r.Utterance("say")
	r.AnswerCaptured()
	r.Unclaimed("dropped")
	assert.Nil(t, r.Registry())
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.Utterance("say")
	r.AnswerCaptured()

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `interview_utterances_total{kind="say"} 1`), body)
	assert.True(t, strings.Contains(body, "interview_answers_captured_total 1"), body)
}
