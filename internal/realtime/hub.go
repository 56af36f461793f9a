package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// SystemChannel is the reserved channel for system-wide events such as
// maintenance-mode toggles. It is not a meeting code.
const SystemChannel = "system"

// broadcastChannel is the bridge channel every instance subscribes to on
// startup, used for instance-wide events. It is never a meeting code.
const broadcastChannel = "all"

// sweepInterval is how often the hub checks registered clients for idle
// expiry.
const sweepInterval = time.Minute

// Config holds per-connection limits enforced by the hub.
type Config struct {
	MaxMessages int           // inbound messages allowed per RateWindow
	RateWindow  time.Duration // sliding-window width
	IdleTimeout time.Duration // silence after which a connection is closed
}

// DefaultConfig returns the production limits: 10 messages per second and a
// one hour idle timeout.
func DefaultConfig() Config {
	return Config{MaxMessages: 10, RateWindow: time.Second, IdleTimeout: time.Hour}
}

// Publisher publishes a meeting event for other instances (cross-instance
// broadcast). Payload is the full event JSON.
type Publisher interface {
	PublishMeetingEvent(meetingCode string, payload []byte) error
}

// Subscriber subscribes to a meeting channel and invokes handler for each
// incoming event payload.
type Subscriber interface {
	SubscribeMeeting(meetingCode string, handler func(payload []byte)) (cancel func(), err error)
}

// Hub maintains meetingCode -> set of connections and fans events out to
// them. It is the only owner of the connection registry; all mutations go
// through Register, Unregister, and the prune path inside broadcasts, under
// one RWMutex. Broadcast sweeps snapshot the set under the read lock and
// send outside it, so a slow client never blocks registration.
type Hub struct {
	// meetingCode -> clientID -> client
	meetings map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per channel
	allSub   func()            // cancel for the instance-wide channel
	mu       sync.RWMutex

	cfg    Config
	clock  clockwork.Clock
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a hub. pub and sub may be nil, in which case broadcasts
// stay local to this instance. With a subscriber, the hub joins the
// instance-wide channel immediately so system events reach every instance
// even when it has no meeting subscriptions of its own.
func NewHub(logger *zap.Logger, cfg Config, clock clockwork.Clock, pub Publisher, sub Subscriber) *Hub {
	h := &Hub{
		meetings: make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
		pub:      pub,
		sub:      sub,
	}
	if sub != nil {
		cancel, err := sub.SubscribeMeeting(broadcastChannel, func(payload []byte) {
			h.BroadcastToAll(json.RawMessage(payload))
		})
		if err == nil {
			h.allSub = cancel
		} else {
			logger.Warn("broadcast channel subscribe failed", zap.Error(err))
		}
	}
	return h
}

// Register adds a client to its meeting channel, creating the channel if
// absent, and resets the client's rate-limit and idle bookkeeping.
// Registering an already-registered client only resets the bookkeeping.
// The first client of a channel starts the cross-instance subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.meetings[c.MeetingCode] == nil {
		h.meetings[c.MeetingCode] = make(map[string]*Client)
		if h.sub != nil {
			code := c.MeetingCode
			cancel, err := h.sub.SubscribeMeeting(code, func(payload []byte) {
				h.Broadcast(code, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[code] = cancel
			} else {
				h.logger.Warn("meeting channel subscribe failed",
					zap.String("meeting_code", code), zap.Error(err))
			}
		}
	}
	h.meetings[c.MeetingCode][c.ID] = c
	h.mu.Unlock()

	c.resetActivity(h.clock.Now())
	h.logger.Debug("client registered",
		zap.String("client_id", c.ID), zap.String("meeting_code", c.MeetingCode))
}

// Unregister removes a client and its bookkeeping. The last client of a
// channel removes the channel entry entirely and cancels the cross-instance
// subscription, so empty meetings never accumulate. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.meetings[c.MeetingCode]; ok {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(h.meetings, c.MeetingCode)
			if cancel, ok := h.subs[c.MeetingCode]; ok {
				cancel()
				delete(h.subs, c.MeetingCode)
			}
		}
	}
	h.mu.Unlock()

	h.logger.Debug("client unregistered",
		zap.String("client_id", c.ID), zap.String("meeting_code", c.MeetingCode))
}

// Broadcast sends an event to every connection registered under
// meetingCode on this instance. A connection that cannot accept the event
// (closed or backed up) is pruned after the sweep; one bad connection
// never blocks delivery to the rest. Unknown codes are a no-op.
func (h *Hub) Broadcast(meetingCode string, event any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.meetings[meetingCode]))
	for _, c := range h.meetings[meetingCode] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	h.deliver(targets, event)
}

// BroadcastToAll sends an event to every connection on every channel,
// including the system channel. Used for system-wide events.
func (h *Hub) BroadcastToAll(event any) {
	h.mu.RLock()
	var targets []*Client
	for _, set := range h.meetings {
		for _, c := range set {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, event)
}

func (h *Hub) deliver(targets []*Client, event any) {
	var failed []*Client
	for _, c := range targets {
		if !c.trySend(event) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		c.close()
		h.Unregister(c)
		h.logger.Debug("pruned unreachable client",
			zap.String("client_id", c.ID), zap.String("meeting_code", c.MeetingCode))
	}
}

// Publish delivers an event to the whole meeting across instances: via the
// cross-instance bridge when configured (the subscription callback performs
// the local fan-out exactly once), falling back to a local broadcast on
// publish failure or when this instance holds no subscription for the code.
func (h *Hub) Publish(meetingCode string, event any) {
	if h.pub == nil {
		h.Broadcast(meetingCode, event)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("event marshal failed", zap.Error(err))
		return
	}
	h.mu.RLock()
	_, subscribed := h.subs[meetingCode]
	h.mu.RUnlock()

	if err := h.pub.PublishMeetingEvent(meetingCode, payload); err != nil {
		h.logger.Warn("event publish failed",
			zap.String("meeting_code", meetingCode), zap.Error(err))
		h.Broadcast(meetingCode, event)
		return
	}
	// Without a subscription there is no loopback, so local clients would
	// miss the event.
	if !subscribed {
		h.Broadcast(meetingCode, event)
	}
}

// PublishToAll delivers an event to every connection on every instance. One
// publish on the instance-wide channel reaches all instances, including
// meetings whose clients are all elsewhere.
func (h *Hub) PublishToAll(event any) {
	if h.pub == nil {
		h.BroadcastToAll(event)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("event marshal failed", zap.Error(err))
		return
	}
	if err := h.pub.PublishMeetingEvent(broadcastChannel, payload); err != nil {
		h.logger.Warn("event publish failed",
			zap.String("meeting_code", broadcastChannel), zap.Error(err))
		h.BroadcastToAll(event)
		return
	}
	if h.allSub == nil {
		h.BroadcastToAll(event)
	}
}

// ClientCount returns the number of connections under a meeting code.
func (h *Hub) ClientCount(meetingCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.meetings[meetingCode])
}

// SweepIdle closes and unregisters every connection whose silence exceeds
// the idle timeout. Returns how many were closed.
func (h *Hub) SweepIdle() int {
	now := h.clock.Now()

	h.mu.RLock()
	var all []*Client
	for _, set := range h.meetings {
		for _, c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	closed := 0
	for _, c := range all {
		if c.idleExpired(now, h.cfg.IdleTimeout) {
			c.close()
			h.Unregister(c)
			closed++
		}
	}
	if closed > 0 {
		h.logger.Info("closed idle connections", zap.Int("count", closed))
	}
	return closed
}

// Run periodically sweeps idle connections until ctx is cancelled, then
// drops the instance-wide subscription.
func (h *Hub) Run(ctx context.Context) {
	ticker := h.clock.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if h.allSub != nil {
				h.allSub()
			}
			return
		case <-ticker.Chan():
			h.SweepIdle()
		}
	}
}
