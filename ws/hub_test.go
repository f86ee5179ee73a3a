package ws

import (
	"sync"
	"testing"

	"github.com/erdlab/collab/testutil"
	"github.com/erdlab/collab/types"
)

// testClient returns an unconnected Client registered for broadcast tests.
// The pumps are never started, so frames pile up in the send queue where
// the test can inspect them.
func testClient(hub *Hub, diagram types.DiagramID, identity types.Identity, buffer int) *Client {
	return &Client{
		hub:      hub,
		logger:   hub.logger.WithDiagram(diagram),
		session:  types.SessionID("s-" + string(identity)),
		diagram:  diagram,
		identity: identity,
		send:     make(chan []byte, buffer),
	}
}

func TestBroadcastReachesOnlyTheDiagramsChannel(t *testing.T) {
	hub := NewHub(nil, nil)

	c1 := testClient(hub, "d1", "alice@example.com", 8)
	c2 := testClient(hub, "d1", "bob@example.com", 8)
	other := testClient(hub, "d2", "carol@example.com", 8)
	for _, c := range []*Client{c1, c2, other} {
		hub.register(c)
	}

	hub.Broadcast("d1", []byte("frame"))

	testutil.AssertLen(t, c1.send, 1)
	testutil.AssertLen(t, c2.send, 1)
	testutil.AssertLen(t, other.send, 0, "other diagrams must not receive the frame")
}

func TestBroadcastPreservesPerConnectionOrder(t *testing.T) {
	hub := NewHub(nil, nil)
	c := testClient(hub, "d1", "alice@example.com", 8)
	hub.register(c)

	frames := []string{"one", "two", "three"}
	for _, f := range frames {
		hub.Broadcast("d1", []byte(f))
	}

	for _, want := range frames {
		got := <-c.send
		testutil.AssertEqual(t, want, string(got))
	}
}

func TestBroadcastToEmptyChannelIsNoOp(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Broadcast("d1", []byte("frame"))
	testutil.AssertEqual(t, 0, hub.Subscribers("d1"))
}

func TestSlowConsumerDropsFramesInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil, nil)
	slow := testClient(hub, "d1", "alice@example.com", 1)
	healthy := testClient(hub, "d1", "bob@example.com", 8)
	hub.register(slow)
	hub.register(healthy)

	hub.Broadcast("d1", []byte("one"))
	hub.Broadcast("d1", []byte("two"))

	testutil.AssertLen(t, slow.send, 1, "overflow frame is dropped for the slow consumer")
	testutil.AssertLen(t, healthy.send, 2, "healthy consumers still get every frame")
	testutil.AssertEqual(t, "one", string(<-slow.send))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil, nil)
	c := testClient(hub, "d1", "alice@example.com", 8)
	hub.register(c)
	testutil.AssertEqual(t, 1, hub.Subscribers("d1"))

	hub.unregister(c)
	testutil.AssertEqual(t, 0, hub.Subscribers("d1"))

	// Second unregister must not close the send queue again.
	hub.unregister(c)

	// After unregister the channel map entry is gone entirely.
	hub.Broadcast("d1", []byte("frame"))
}

// TestBroadcastRacingDisconnect drives broadcasts against concurrent
// unregisters. A send on a closed channel panics even inside a select with
// a default case, so the send queue close and every enqueue must go
// through the client's guard.
func TestBroadcastRacingDisconnect(t *testing.T) {
	hub := NewHub(nil, nil)

	for i := 0; i < 1000; i++ {
		c := testClient(hub, "d1", "alice@example.com", 1)
		hub.register(c)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				hub.Broadcast("d1", []byte("frame"))
			}
		}()
		go func() {
			defer wg.Done()
			hub.unregister(c)
		}()
		wg.Wait()
	}
}

func TestEnqueueAfterCloseReportsFalse(t *testing.T) {
	hub := NewHub(nil, nil)
	c := testClient(hub, "d1", "alice@example.com", 8)
	hub.register(c)
	hub.unregister(c)

	testutil.AssertFalse(t, c.enqueue([]byte("frame")),
		"a departed connection must refuse frames instead of panicking")
}

func TestDisconnectRunsExactlyOnce(t *testing.T) {
	hub := NewHub(nil, nil)
	c := testClient(hub, "d1", "alice@example.com", 8)
	hub.register(c)

	c.disconnect()
	c.disconnect()

	testutil.AssertEqual(t, 0, hub.Subscribers("d1"))
}
