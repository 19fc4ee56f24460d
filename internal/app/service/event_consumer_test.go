package service

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestEventConsumer_StopEndsConsumeLoop(t *testing.T) {
	c := NewEventConsumer(nil, nil, nil)

	done := make(chan struct{})
	go func() {
		// A zero-value subscription makes every fetch fail immediately; the
		// loop must still notice the stop signal and exit.
		c.consume(&nats.Subscription{})
		close(done)
	}()

	c.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume loop did not stop")
	}
}
