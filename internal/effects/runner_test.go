package effects

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"property_portal_backend/platform/logger"

	"github.com/stretchr/testify/require"
)

func TestRunIsolatesFailuresAndPanics(t *testing.T) {
	runner := NewRunner(logger.Discard(), time.Second)
	var order []string

	report := runner.Run(context.Background(),
		New("first", func(ctx context.Context) error {
			order = append(order, "first")
			return errors.New("push provider down")
		}),
		New("second", func(ctx context.Context) error {
			order = append(order, "second")
			panic("nil map")
		}),
		New("third", func(ctx context.Context) error {
			order = append(order, "third")
			return nil
		}),
	)

	require.Equal(t, []string{"first", "second", "third"}, order)
	require.Len(t, report, 3)
	require.Len(t, report.Failed(), 2)

	third, ok := report.Outcome("third")
	require.True(t, ok)
	require.True(t, third.OK())

	second, _ := report.Outcome("second")
	require.ErrorContains(t, second.Err, "panicked")
}

func TestRunAppliesPerEffectTimeout(t *testing.T) {
	runner := NewRunner(logger.Discard(), 20*time.Millisecond)

	report := runner.Run(context.Background(), New("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	require.ErrorIs(t, report[0].Err, context.DeadlineExceeded)
}

func TestGoDetachesFromCallerCancellation(t *testing.T) {
	runner := NewRunner(logger.Discard(), 0)
	var mu sync.Mutex
	var reports []Report
	runner.Observe(func(r Report) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, r)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner.Go(ctx, New("notify", func(ctx context.Context) error {
		return ctx.Err()
	}))
	runner.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reports, 1)
	require.True(t, reports[0][0].OK())
}

func TestInlineRunnerBlocks(t *testing.T) {
	runner := NewInlineRunner(nil)
	ran := false

	runner.Go(context.Background(), New("report", func(ctx context.Context) error {
		ran = true
		return nil
	}))

	require.True(t, ran)
}
