package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/devicesession/internal/testutil"
)

func TestPollerRunsUntilCanceled(t *testing.T) {
	adapter := testutil.NewStubAdapter("a")
	tracker := NewTracker("dev", adapter)
	poller := NewPoller(tracker, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return adapter.InstalledCalls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerSurvivesFailures(t *testing.T) {
	adapter := testutil.NewStubAdapter("a")
	adapter.InstalledErr = assert.AnError
	tracker := NewTracker("dev", adapter)
	poller := NewPoller(tracker, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	poller.Run(ctx)

	assert.GreaterOrEqual(t, adapter.InstalledCalls.Load(), int32(2))
}
