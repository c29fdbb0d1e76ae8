package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestWorkflow_RunsStepsInOrder(t *testing.T) {
	var order []string
	w := New("order", logger.NewNoop())
	for _, name := range []string{"a", "b", "c"} {
		w.AddStep(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	for _, s := range w.Steps() {
		assert.Equal(t, StatusSuccess, s.Status())
		assert.Equal(t, 1, s.Attempts())
	}
}

func TestWorkflow_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	w := New("retry", logger.NewNoop(), WithRetryable(func(err error) bool {
		return errors.Is(err, errTransient)
	}))
	w.AddStepWithOptions("flaky", func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, 3, time.Millisecond, time.Second)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, w.Steps()[0].Attempts())
}

func TestWorkflow_StopsOnPermanentError(t *testing.T) {
	reached := false
	w := New("fail", logger.NewNoop(), WithRetryable(func(err error) bool {
		return errors.Is(err, errTransient)
	}))
	w.AddStepWithOptions("broken", func(context.Context) error {
		return errors.New("bad request")
	}, 3, time.Millisecond, time.Second)
	w.AddStep("never", func(context.Context) error {
		reached = true
		return nil
	})

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step broken")
	assert.False(t, reached)
	assert.Equal(t, 1, w.Steps()[0].Attempts())
	assert.Equal(t, StatusFailure, w.Steps()[0].Status())
	assert.Equal(t, StatusPending, w.Steps()[1].Status())
}

func TestWorkflow_RetriesExhausted(t *testing.T) {
	w := New("exhaust", logger.NewNoop(), WithRetryable(func(error) bool { return true }))
	w.AddStepWithOptions("always", func(context.Context) error {
		return errTransient
	}, 2, time.Millisecond, time.Second)

	err := w.Run(context.Background())
	assert.True(t, errors.Is(err, errTransient))
	assert.Equal(t, 3, w.Steps()[0].Attempts())
}

func TestWorkflow_StepTimeout(t *testing.T) {
	w := New("timeout", logger.NewNoop())
	w.AddStepWithOptions("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 0, 0, 10*time.Millisecond)

	err := w.Run(context.Background())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
