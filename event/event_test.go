// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package event

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscribePublish(t *testing.T) {
	bus := NewEventBus(prometheus.NewRegistry())
	defer bus.Stop()

	subId, evtCh := bus.Subscribe("test.event")
	defer bus.Unsubscribe("test.event", subId)

	bus.Publish("test.event", NewEvent("test.event", "payload"))

	select {
	case evt := <-evtCh:
		assert.Equal(t, EventType("test.event"), evt.Type)
		assert.Equal(t, "payload", evt.Data)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Stop()

	// Should not block or panic
	bus.Publish("test.event", NewEvent("test.event", nil))
}

func TestSubscribeFunc(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	var got Event
	bus.SubscribeFunc("test.event", func(evt Event) {
		got = evt
		wg.Done()
	})

	bus.Publish("test.event", NewEvent("test.event", 42))
	wg.Wait()
	assert.Equal(t, 42, got.Data)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Stop()

	subId, evtCh := bus.Subscribe("test.event")
	bus.Unsubscribe("test.event", subId)

	// Channel should be closed
	_, ok := <-evtCh
	require.False(t, ok)
}

func TestPublishAfterStop(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Stop()

	// Should be a no-op
	bus.Publish("test.event", NewEvent("test.event", nil))
}

func TestPublishUnsubscribeRace(t *testing.T) {
	// Publish snapshots subscriber channels before sending, so a
	// concurrent Unsubscribe can close a channel mid-publish. The send
	// is guarded and must never panic
	for range 100 {
		bus := NewEventBus(nil)

		subId, evtCh := bus.Subscribe("test.event")
		// Drain so publishes don't block on the buffered channel
		done := make(chan struct{})
		go func() {
			defer close(done)
			for range evtCh {
			}
		}()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 10 {
				bus.Publish("test.event", NewEvent("test.event", nil))
			}
		}()
		go func() {
			defer wg.Done()
			bus.Unsubscribe("test.event", subId)
		}()
		wg.Wait()
		<-done
		bus.Stop()
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Stop()

	_, ch1 := bus.Subscribe("test.event")
	_, ch2 := bus.Subscribe("test.event")

	bus.Publish("test.event", NewEvent("test.event", "broadcast"))

	for _, evtCh := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-evtCh:
			assert.Equal(t, "broadcast", evt.Data)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}
