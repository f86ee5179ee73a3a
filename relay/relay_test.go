package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erdlab/collab/bus"
	"github.com/erdlab/collab/event"
	"github.com/erdlab/collab/testutil"
	"github.com/erdlab/collab/types"
)

// recordingBroadcaster captures every payload delivered per diagram.
type recordingBroadcaster struct {
	mu     sync.Mutex
	frames map[types.DiagramID][][]byte
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{frames: make(map[types.DiagramID][][]byte)}
}

func (b *recordingBroadcaster) Broadcast(diagram types.DiagramID, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames[diagram] = append(b.frames[diagram], payload)
}

func (b *recordingBroadcaster) count(diagram types.DiagramID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames[diagram])
}

// events decodes the payloads delivered on a diagram's channel.
func (b *recordingBroadcaster) events(t *testing.T, diagram types.DiagramID) []event.Event {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []event.Event
	for _, payload := range b.frames[diagram] {
		e, err := event.Unmarshal(payload)
		testutil.RequireNoError(t, err)
		out = append(out, e)
	}
	return out
}

// failingBus rejects every publish.
type failingBus struct{}

func (failingBus) Publish(context.Context, string, []byte) error {
	return errors.New("bus down")
}
func (failingBus) Subscribe(ctx context.Context, _ bus.Handler) error {
	<-ctx.Done()
	return nil
}
func (failingBus) Close() error { return nil }

// twoInstances wires two relays to one shared bus, each with its own
// broadcaster, and waits for both subscriptions to register.
func twoInstances(t *testing.T) (Relay, *recordingBroadcaster, *recordingBroadcaster) {
	t.Helper()

	shared := bus.NewLoopbackBus()
	hubA := newRecordingBroadcaster()
	hubB := newRecordingBroadcaster()
	relayA := New(hubA, WithBus(shared))
	relayB := New(hubB, WithBus(shared))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, r := range []Relay{relayA, relayB} {
		wg.Add(1)
		go func(r Relay) {
			defer wg.Done()
			_ = r.Run(ctx)
		}(r)
	}
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	deadline := time.Now().Add(2 * time.Second)
	for shared.Subscribers() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("bus subscriptions never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return relayA, hubA, hubB
}

func TestReplicatedEventReachesEveryInstance(t *testing.T) {
	relayA, hubA, hubB := twoInstances(t)

	e := event.ElementCreated{DiagramID: "d1", ElementID: "t1", Name: "users"}
	testutil.RequireNoError(t, relayA.Publish(context.Background(), e))

	// Loopback delivery is synchronous, so both hubs have the frame now.
	testutil.AssertEqual(t, []event.Event{e}, hubA.events(t, "d1"),
		"origin instance delivers via its own subscription")
	testutil.AssertEqual(t, []event.Event{e}, hubB.events(t, "d1"),
		"far instance delivers via the shared bus")
}

func TestNonReplicatedClassesStayInstanceLocal(t *testing.T) {
	relayA, hubA, hubB := twoInstances(t)
	ctx := context.Background()

	locals := []event.Event{
		event.OrderChanged{DiagramID: "d1", ElementID: "t1", Ordinal: 2},
		event.ElementLocked{DiagramID: "d1", ElementID: "t1", Owner: "alice@example.com"},
		event.CursorMoved{DiagramID: "d1", Member: "alice@example.com", X: 5, Y: 5},
	}
	for _, e := range locals {
		testutil.RequireNoError(t, relayA.Publish(ctx, e))
	}

	testutil.AssertEqual(t, len(locals), hubA.count("d1"))
	testutil.AssertEqual(t, 0, hubB.count("d1"), "local classes must not cross instances")
}

func TestPublishWithoutBusDeliversLocally(t *testing.T) {
	hub := newRecordingBroadcaster()
	r := New(hub)

	e := event.ElementDeleted{DiagramID: "d1", ElementID: "t1"}
	testutil.RequireNoError(t, r.Publish(context.Background(), e))
	testutil.AssertEqual(t, []event.Event{e}, hub.events(t, "d1"))

	// Run with no bus is a no-op, not a hang.
	testutil.AssertNoError(t, r.Run(context.Background()))
}

func TestBusFailureFallsBackToLocalDelivery(t *testing.T) {
	hub := newRecordingBroadcaster()
	r := New(hub, WithBus(failingBus{}))

	e := event.ElementUpdated{DiagramID: "d1", ElementID: "t1", Name: "accounts"}
	testutil.RequireNoError(t, r.Publish(context.Background(), e),
		"bus failure must not fail the caller's mutation")
	testutil.AssertEqual(t, []event.Event{e}, hub.events(t, "d1"))
}

// strayEvent is not part of the closed event set.
type strayEvent struct{}

func (strayEvent) Type() event.Type         { return event.Type("STRAY") }
func (strayEvent) Diagram() types.DiagramID { return "d1" }

func TestUnroutableEventRejected(t *testing.T) {
	hub := newRecordingBroadcaster()
	r := New(hub)

	err := r.Publish(context.Background(), strayEvent{})
	testutil.AssertErrorIs(t, err, ErrUnroutableEvent)
	testutil.AssertEqual(t, 0, hub.count("d1"))
}

func TestUndecodableBusMessageSkipped(t *testing.T) {
	shared := bus.NewLoopbackBus()
	hub := newRecordingBroadcaster()
	r := New(hub, WithBus(shared))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for shared.Subscribers() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("bus subscription never registered")
		}
		time.Sleep(time.Millisecond)
	}

	testutil.RequireNoError(t, shared.Publish(ctx, "d1", []byte("garbage")))
	testutil.AssertEqual(t, 0, hub.count("d1"), "undecodable message must be dropped")

	e := event.ElementCreated{DiagramID: "d1", ElementID: "t1"}
	payload, err := event.Marshal(e)
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, shared.Publish(ctx, "d1", payload))
	testutil.AssertEqual(t, 1, hub.count("d1"), "good messages still flow after a bad one")
}
