package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/promptforge/framework"
)

// drain reads notifications until want UIEnabled notifications arrived.
func drain(t *testing.T, d *Dispatcher, want int) []Notification {
	t.Helper()
	var out []Notification
	enabled := 0
	timeout := time.After(5 * time.Second)
	for enabled < want {
		select {
		case n := <-d.Notifications():
			out = append(out, n)
			if n.Kind == NotifyUIEnabled {
				enabled++
			}
		case <-timeout:
			t.Fatalf("timed out after %d of %d tasks", enabled, want)
		}
	}
	return out
}

func byTask(notes []Notification) map[string][]NotificationKind {
	out := map[string][]NotificationKind{}
	for _, n := range notes {
		out[n.TaskID] = append(out[n.TaskID], n.Kind)
	}
	return out
}

func TestDispatcherSuccessLifecycle(t *testing.T) {
	rec := &framework.RecordingTelemetry{}
	d := New(RunnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		tc, ok := framework.TaskContextFrom(ctx)
		assert.True(t, ok)
		assert.Equal(t, task.ID, tc.ID)
		assert.Equal(t, StatusRunning, task.Status)
		return Outcome{Text: "done: " + task.Payload.Prompt, Model: "m"}, nil
	}), Options{Telemetry: rec})
	defer d.Shutdown()

	h, err := d.Submit(KindGenerate, Payload{Prompt: "hello"})
	require.NoError(t, err)
	notes := drain(t, d, 1)
	require.Equal(t, []NotificationKind{NotifyStateChange, NotifyResult, NotifyUIEnabled}, byTask(notes)[h.ID])
	require.Equal(t, "done: hello", notes[1].Payload)
	require.Equal(t, StatusSucceeded, notes[2].Status)

	<-h.Done()
	_, live := d.Task(h.ID)
	require.False(t, live)
	require.Equal(t, 1, rec.Count(framework.EventTaskSucceeded))
	require.Equal(t, 1, d.Stats().Succeeded)
}

func TestDispatcherFailureStillEnablesUI(t *testing.T) {
	d := New(RunnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		return Outcome{}, errors.New("quota exceeded")
	}), Options{})
	defer d.Shutdown()

	h, err := d.Submit(KindModifyCode, Payload{Instructions: "rename", Code: "x = 1"})
	require.NoError(t, err)
	notes := drain(t, d, 1)
	require.Equal(t, []NotificationKind{NotifyStateChange, NotifyError, NotifyUIEnabled}, byTask(notes)[h.ID])
	require.Equal(t, "Error modifying code: quota exceeded", notes[1].Message)
	require.Equal(t, StatusFailed, notes[2].Status)
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := New(RunnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		panic("kaboom")
	}), Options{})
	defer d.Shutdown()

	_, err := d.Submit(KindGenerate, Payload{Prompt: "p"})
	require.NoError(t, err)
	notes := drain(t, d, 1)
	require.Equal(t, NotifyError, notes[1].Kind)
	require.Contains(t, notes[1].Message, "kaboom")
}

func TestDispatcherRejectsBadPayload(t *testing.T) {
	d := New(nil, Options{})
	defer d.Shutdown()
	_, err := d.Submit(KindGenerate, Payload{})
	require.Error(t, err)
	_, err = d.Submit(KindModifyCode, Payload{Instructions: "x"})
	require.Error(t, err)
	_, err = d.Submit(Kind("other"), Payload{Prompt: "x"})
	require.Error(t, err)
	require.Zero(t, d.Stats().Submitted)
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	var running, peak int32
	release := make(chan struct{})
	d := New(RunnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return Outcome{Text: "ok"}, nil
	}), Options{})
	defer d.Shutdown()

	const total = 10
	for i := 0; i < total; i++ {
		_, err := d.Submit(KindGenerate, Payload{Prompt: "p"})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&running) == DefaultWorkers }, 2*time.Second, 5*time.Millisecond)
	close(release)

	notes := drain(t, d, total)
	d.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(DefaultWorkers))

	terminal := 0
	for _, n := range notes {
		if n.Kind == NotifyResult || n.Kind == NotifyError {
			terminal++
		}
	}
	require.Equal(t, total, terminal)
	stats := d.Stats()
	require.Equal(t, total, stats.Submitted)
	require.Equal(t, total, stats.Succeeded+stats.Failed)
	require.Zero(t, stats.Running)
}

func TestDispatcherShutdownAbandonsPending(t *testing.T) {
	release := make(chan struct{})
	d := New(RunnerFunc(func(ctx context.Context, task Task) (Outcome, error) {
		<-release
		return Outcome{Text: "late"}, nil
	}), Options{Workers: 1})

	first, err := d.Submit(KindGenerate, Payload{Prompt: "a"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return d.Stats().Running == 1 }, 2*time.Second, 5*time.Millisecond)
	pending, err := d.Submit(KindGenerate, Payload{Prompt: "b"})
	require.NoError(t, err)

	d.Shutdown()
	select {
	case <-pending.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pending task was not abandoned")
	}
	_, err = d.Submit(KindGenerate, Payload{Prompt: "c"})
	require.ErrorIs(t, err, ErrShutdown)

	// The running task still completes.
	close(release)
	<-first.Done()
	d.Wait()
	stats := d.Stats()
	require.Equal(t, 1, stats.Abandoned)
	require.Equal(t, 1, stats.Succeeded)
}
