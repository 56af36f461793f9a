package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(clock clockwork.Clock) *Hub {
	return NewHub(zap.NewNop(), DefaultConfig(), clock, nil, nil)
}

func addClient(t *testing.T, h *Hub, meetingCode string) *Client {
	t.Helper()
	c := newClient(h, meetingCode, nil)
	h.Register(c)
	return c
}

func receivedEvents(c *Client) []any {
	var out []any
	for {
		select {
		case e := <-c.send:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestHub_BroadcastIsolation(t *testing.T) {
	h := newTestHub(clockwork.NewFakeClock())
	a1 := addClient(t, h, "meeting-a")
	a2 := addClient(t, h, "meeting-a")
	b := addClient(t, h, "meeting-b")

	h.Broadcast("meeting-a", Pong())

	assert.Len(t, receivedEvents(a1), 1)
	assert.Len(t, receivedEvents(a2), 1)
	assert.Empty(t, receivedEvents(b), "other meetings must not see the event")
}

func TestHub_BroadcastUnknownCode(t *testing.T) {
	h := newTestHub(clockwork.NewFakeClock())
	assert.NotPanics(t, func() { h.Broadcast("no-such-meeting", Pong()) })
}

func TestHub_BroadcastToAll(t *testing.T) {
	h := newTestHub(clockwork.NewFakeClock())
	a := addClient(t, h, "meeting-a")
	b := addClient(t, h, "meeting-b")
	s := addClient(t, h, SystemChannel)

	h.BroadcastToAll(MaintenanceMode(true))

	assert.Len(t, receivedEvents(a), 1)
	assert.Len(t, receivedEvents(b), 1)
	assert.Len(t, receivedEvents(s), 1)

	// Empty registry is a no-op.
	empty := newTestHub(clockwork.NewFakeClock())
	assert.NotPanics(t, func() { empty.BroadcastToAll(MaintenanceMode(false)) })
}

func TestHub_RegisterIdempotent(t *testing.T) {
	h := newTestHub(clockwork.NewFakeClock())
	c := addClient(t, h, "meeting-a")
	h.Register(c)
	h.Register(c)

	assert.Equal(t, 1, h.ClientCount("meeting-a"))

	h.Broadcast("meeting-a", Pong())
	assert.Len(t, receivedEvents(c), 1, "re-registration must not duplicate delivery")
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	h := newTestHub(clockwork.NewFakeClock())
	c := addClient(t, h, "meeting-a")

	h.Unregister(c)
	assert.Equal(t, 0, h.ClientCount("meeting-a"))
	assert.NotPanics(t, func() { h.Unregister(c) })
}

func TestHub_PrunesUnreachableClients(t *testing.T) {
	h := newTestHub(clockwork.NewFakeClock())
	healthy := addClient(t, h, "meeting-a")
	dead := addClient(t, h, "meeting-a")
	dead.close()

	h.Broadcast("meeting-a", Pong())

	assert.Len(t, receivedEvents(healthy), 1, "healthy client still receives")
	assert.Equal(t, 1, h.ClientCount("meeting-a"), "dead client pruned from registry")
}

func TestHub_PrunesBackedUpClients(t *testing.T) {
	h := newTestHub(clockwork.NewFakeClock())
	slow := addClient(t, h, "meeting-a")
	fast := addClient(t, h, "meeting-a")

	// Fill the slow client's buffer; the next event cannot be queued.
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, slow.trySend(Pong()))
	}
	h.Broadcast("meeting-a", Pong())

	assert.Len(t, receivedEvents(fast), 1)
	assert.Equal(t, 1, h.ClientCount("meeting-a"))
	assert.True(t, slow.closed())
}

func TestHub_SweepIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := newTestHub(clock)
	idle := addClient(t, h, "meeting-a")
	active := addClient(t, h, "meeting-a")

	// An hour of silence exactly is still within the limit.
	clock.Advance(time.Hour)
	assert.Equal(t, 0, h.SweepIdle())

	// One second past the limit closes the silent client only.
	clock.Advance(time.Second)
	active.touch(clock.Now())
	assert.Equal(t, 1, h.SweepIdle())
	assert.True(t, idle.closed())
	assert.False(t, active.closed())
	assert.Equal(t, 1, h.ClientCount("meeting-a"))
}

func TestHub_RegisterResetsIdleClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := newTestHub(clock)
	c := addClient(t, h, "meeting-a")

	clock.Advance(time.Hour)
	h.Register(c)
	clock.Advance(30 * time.Minute)

	assert.Equal(t, 0, h.SweepIdle(), "re-registration restarts the idle clock")
}

func TestHub_PublishWithoutBridgeBroadcastsLocally(t *testing.T) {
	h := newTestHub(clockwork.NewFakeClock())
	c := addClient(t, h, "meeting-a")

	h.Publish("meeting-a", VoteUpdate(uuid.New(), 3))
	assert.Len(t, receivedEvents(c), 1)
}

// fakeBridge stands in for Redis pub/sub. Several hubs can share one
// bridge, which makes cross-instance delivery observable in tests.
type fakeBridge struct {
	published map[string][][]byte
	handlers  map[string][]func([]byte)
	cancelled map[string]int
	subErr    error
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		published: make(map[string][][]byte),
		handlers:  make(map[string][]func([]byte)),
		cancelled: make(map[string]int),
	}
}

func (f *fakeBridge) PublishMeetingEvent(meetingCode string, payload []byte) error {
	f.published[meetingCode] = append(f.published[meetingCode], payload)
	for _, handler := range f.handlers[meetingCode] {
		if handler != nil {
			handler(payload)
		}
	}
	return nil
}

func (f *fakeBridge) SubscribeMeeting(meetingCode string, handler func([]byte)) (func(), error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.handlers[meetingCode] = append(f.handlers[meetingCode], handler)
	idx := len(f.handlers[meetingCode]) - 1
	return func() {
		f.handlers[meetingCode][idx] = nil
		f.cancelled[meetingCode]++
	}, nil
}

func (f *fakeBridge) hasHandler(meetingCode string) bool {
	for _, handler := range f.handlers[meetingCode] {
		if handler != nil {
			return true
		}
	}
	return false
}

func TestHub_BridgeSubscriptionLifecycle(t *testing.T) {
	bridge := newFakeBridge()
	h := NewHub(zap.NewNop(), DefaultConfig(), clockwork.NewFakeClock(), bridge, bridge)

	c1 := addClient(t, h, "meeting-a")
	c2 := addClient(t, h, "meeting-a")
	assert.True(t, bridge.hasHandler("meeting-a"), "first client opens the subscription")

	h.Unregister(c1)
	assert.True(t, bridge.hasHandler("meeting-a"))
	h.Unregister(c2)
	assert.Equal(t, 1, bridge.cancelled["meeting-a"], "last client cancels the subscription")
	assert.False(t, bridge.hasHandler("meeting-a"))
}

func TestHub_PublishDeliversThroughBridgeOnce(t *testing.T) {
	bridge := newFakeBridge()
	h := NewHub(zap.NewNop(), DefaultConfig(), clockwork.NewFakeClock(), bridge, bridge)
	c := addClient(t, h, "meeting-a")

	h.Publish("meeting-a", Pong())

	require.Len(t, bridge.published["meeting-a"], 1)
	events := receivedEvents(c)
	require.Len(t, events, 1, "local fan-out happens via the subscription callback, not twice")

	raw, ok := events[0].(json.RawMessage)
	require.True(t, ok)
	var decoded PongEvent
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, EventPong, decoded.Type)
}

func TestHub_PublishToAllReachesOtherInstances(t *testing.T) {
	bridge := newFakeBridge()
	h1 := NewHub(zap.NewNop(), DefaultConfig(), clockwork.NewFakeClock(), bridge, bridge)
	h2 := NewHub(zap.NewNop(), DefaultConfig(), clockwork.NewFakeClock(), bridge, bridge)

	local := addClient(t, h1, "meeting-a")
	// meeting-b has clients on the other instance only.
	remote := addClient(t, h2, "meeting-b")

	h1.PublishToAll(MaintenanceMode(true))

	require.Len(t, bridge.published[broadcastChannel], 1, "one publish covers every instance")
	assert.Len(t, receivedEvents(local), 1)
	assert.Len(t, receivedEvents(remote), 1, "instances without the publishing hub's meetings still deliver")
}

func TestHub_PublishFallsBackWhenSubscribeFails(t *testing.T) {
	bridge := newFakeBridge()
	bridge.subErr = assert.AnError
	h := NewHub(zap.NewNop(), DefaultConfig(), clockwork.NewFakeClock(), bridge, bridge)
	c := addClient(t, h, "meeting-a")

	h.Publish("meeting-a", Pong())

	require.Len(t, bridge.published["meeting-a"], 1, "bridge publish still happens for other instances")
	assert.Len(t, receivedEvents(c), 1, "no subscription means no loopback, so delivery is local")

	h.PublishToAll(MaintenanceMode(true))
	assert.Len(t, receivedEvents(c), 1, "instance-wide fallback when the broadcast subscription is down")
}
