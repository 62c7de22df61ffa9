package node

import (
	"sync"
	"sync/atomic"
	"testing"

	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

func TestEventBusEmitOn(t *testing.T) {
	eb := NewEventBus(testLogger())
	var received Event
	eb.On(EventCommandReceived, func(e Event) { received = e })

	eb.Emit(Event{Type: EventCommandReceived, Data: CommandEvent{Command: 0x02, Name: "Toggle"}})

	if received.Type != EventCommandReceived {
		t.Errorf("type = %q, want %q", received.Type, EventCommandReceived)
	}
	if ce, ok := received.Data.(CommandEvent); !ok || ce.Name != "Toggle" {
		t.Errorf("data = %v, want Toggle command", received.Data)
	}
}

func TestEventBusOnDoesNotReceiveOtherTypes(t *testing.T) {
	eb := NewEventBus(testLogger())
	called := false
	eb.On(EventReportSent, func(e Event) { called = true })

	eb.Emit(Event{Type: EventReportReceived})

	if called {
		t.Error("handler called for wrong event type")
	}
}

func TestEventBusOnAllAndUnsubscribe(t *testing.T) {
	eb := NewEventBus(testLogger())
	var count atomic.Int32
	unsub := eb.OnAll(func(e Event) { count.Add(1) })

	eb.Emit(Event{Type: EventAttributeChanged})
	eb.Emit(Event{Type: EventDefaultResponse})
	unsub()
	eb.Emit(Event{Type: EventAttributeChanged})

	if count.Load() != 2 {
		t.Errorf("onAll called %d times, want 2", count.Load())
	}
}

func TestEventBusSubscriptionOrder(t *testing.T) {
	eb := NewEventBus(testLogger())
	var order []int
	eb.On(EventFrameError, func(e Event) { order = append(order, 1) })
	eb.OnAll(func(e Event) { order = append(order, 2) })
	eb.On(EventFrameError, func(e Event) { order = append(order, 3) })

	eb.Emit(Event{Type: EventFrameError})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestEventBusPanicRecovery(t *testing.T) {
	eb := NewEventBus(testLogger())
	var called atomic.Int32
	eb.On(EventSendError, func(e Event) {
		called.Add(1)
		panic("test panic")
	})
	eb.On(EventSendError, func(e Event) { called.Add(1) })

	eb.Emit(Event{Type: EventSendError})

	if c := called.Load(); c != 2 {
		t.Errorf("expected 2 handlers called, got %d", c)
	}
}

func TestEventBusConcurrentEmit(t *testing.T) {
	eb := NewEventBus(testLogger())
	var count atomic.Int32
	eb.OnAll(func(e Event) { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eb.Emit(Event{Type: EventReportSent})
		}()
	}
	wg.Wait()

	if count.Load() != 100 {
		t.Errorf("got %d, want 100", count.Load())
	}
}

func TestEventsFollowTheOperation(t *testing.T) {
	tn := newTestNode(t)
	var got []AttributeEvent
	tn.Events().On(EventAttributeChanged, func(e Event) {
		got = append(got, e.Data.(AttributeEvent))
		// handlers run unlocked and may call back in
		if _, err := tn.ReadAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr); err != nil {
			t.Errorf("read from handler: %v", err)
		}
	})

	err := tn.Do(func(tx *Tx) error {
		if err := tx.Set(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true)); err != nil {
			return err
		}
		if len(got) != 0 {
			t.Error("event delivered before the operation finished")
		}
		return tx.Set(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(false))
	})
	if err != nil {
		t.Fatal(err)
	}
	// true then false again: nothing changed
	if len(got) != 0 {
		t.Errorf("got %d events, want 0", len(got))
	}

	if err := tn.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true)); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "OnOff" || !got[0].Value.Bool() {
		t.Errorf("events = %+v, want one OnOff=true", got)
	}
}
