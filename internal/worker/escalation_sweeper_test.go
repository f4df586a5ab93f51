package worker

import (
	"testing"
	"time"
)

func TestSweeperStartStop(t *testing.T) {
	sweeper := NewEscalationSweeper(nil, time.Hour, nil)
	sweeper.Start()

	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestSweeperStopIsIdempotent(t *testing.T) {
	sweeper := NewEscalationSweeper(nil, time.Hour, nil)
	sweeper.Start()
	sweeper.Stop()
	sweeper.Stop()
}
