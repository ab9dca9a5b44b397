package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/metrics"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/script"
)

// StatusTracker is the process-wide status updated around every session.
type StatusTracker interface {
	Begin(room, session string)
	End(session string) bool
}

// ErrParticipantLeft is wrapped by agents whose participant went away.
var ErrParticipantLeft = errors.New("participant left")

// ScriptResolver maps a variant name to a script.
type ScriptResolver func(variant string) (*script.Script, error)

// Runner is the entrypoint for one connected participant: it owns status,
// session bookkeeping and metrics around a Driver run.
type Runner struct {
	registry *Registry
	status   StatusTracker
	metrics  *metrics.Recorder
	resolve  ScriptResolver
}

// NewRunner wires a runner. resolve defaults to the embedded script variants.
func NewRunner(registry *Registry, status StatusTracker, recorder *metrics.Recorder, resolve ScriptResolver) *Runner {
	if resolve == nil {
		resolve = script.Variant
	}
	return &Runner{
		registry: registry,
		status:   status,
		metrics:  recorder,
		resolve:  resolve,
	}
}

// Registry returns the session registry.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Script resolves the script a session with this variant would speak.
func (r *Runner) Script(variant string) (*script.Script, error) {
	return r.resolve(variant)
}

// Run drives one interview to its end. The returned session is the final
// snapshot; err is non-nil when the session was aborted.
func (r *Runner) Run(ctx context.Context, params CreateParams, agent Agent) (session interview.Session, err error) {
	s, err := r.resolve(params.Variant)
	if err != nil {
		return interview.Session{}, fmt.Errorf("resolve script: %w", err)
	}
	params.Variant = s.Name

	created, err := r.registry.Create(ctx, params)
	if err != nil {
		return interview.Session{}, err
	}

	log.Printf("[interview] connecting to room %s", created.RoomName)
	if r.status != nil {
		r.status.Begin(created.RoomName, created.ID)
	}
	r.metrics.SessionStarted()
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("interview panicked: %v", rec)
		}

		final := interview.StateCompleted
		// bookkeeping runs even when ctx is already cancelled
		bookCtx := context.WithoutCancel(ctx)
		if err != nil {
			final = interview.StateAborted
			if abortErr := r.registry.Abort(bookCtx, created.ID, abortReason(err)); abortErr != nil {
				log.Printf("[interview] mark session=%s aborted failed: %v", created.ID, abortErr)
			}
			log.Printf("[interview] session=%s room=%s aborted: %v", created.ID, created.RoomName, err)
		} else {
			if completeErr := r.registry.Complete(bookCtx, created.ID); completeErr != nil {
				log.Printf("[interview] mark session=%s completed failed: %v", created.ID, completeErr)
			}
			log.Printf("[interview] session=%s room=%s completed", created.ID, created.RoomName)
		}

		if r.status != nil {
			r.status.End(created.ID)
		}
		r.metrics.SessionFinished(string(final), time.Since(started))

		if snapshot, getErr := r.registry.Get(bookCtx, created.ID); getErr == nil {
			session = snapshot
		}
	}()

	if binder, ok := agent.(SessionAware); ok {
		binder.BindSession(created.ID)
	}

	log.Printf("[interview] starting interview for participant %s (session=%s, variant=%s)", created.ParticipantID, created.ID, s.Name)
	err = NewDriver(s, r.registry, r.metrics).Run(ctx, agent, created.ID)
	return created, err
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, ErrParticipantLeft):
		return "participant disconnected: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "session timed out: " + err.Error()
	default:
		return err.Error()
	}
}
