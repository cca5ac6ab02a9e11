package hub

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-live/pkg/log"
	"github.com/weiawesome/wes-io-live/pkg/pubsub"
)

// Subscriber relays room fan-out events from the pub/sub bus into the
// local hub, so peers on every instance receive a room's frames.
type Subscriber struct {
	bus     pubsub.Subscriber
	pattern string
	hub     *Hub
	doneCh  chan struct{}
}

// NewSubscriber creates a subscriber for all room peer channels.
func NewSubscriber(bus pubsub.Subscriber, h *Hub) *Subscriber {
	return &Subscriber{
		bus:     bus,
		pattern: pubsub.PatternRoomPeers,
		hub:     h,
		doneCh:  make(chan struct{}),
	}
}

// Done returns a channel that is closed when Run() exits.
func (s *Subscriber) Done() <-chan struct{} { return s.doneCh }

// Run relays events until ctx is done, resubscribing when the bus closes
// the stream early.
func (s *Subscriber) Run(ctx context.Context) {
	defer close(s.doneCh)
	l := log.L()

	for {
		err := s.runSubscription(ctx)
		if ctx.Err() != nil {
			return
		}
		l.Warn().Err(err).Msg("room pubsub subscription ended, resubscribing in 2s")
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// Ready subscribes synchronously and relays in the background. Use when
// callers must not publish before the subscription is live.
func (s *Subscriber) Ready(ctx context.Context) error {
	events, err := s.bus.SubscribePattern(ctx, s.pattern)
	if err != nil {
		return err
	}
	go func() {
		defer close(s.doneCh)
		s.relay(ctx, events)
	}()
	return nil
}

func (s *Subscriber) runSubscription(ctx context.Context) error {
	events, err := s.bus.SubscribePattern(ctx, s.pattern)
	if err != nil {
		return err
	}
	s.relay(ctx, events)
	return nil
}

func (s *Subscriber) relay(ctx context.Context, events <-chan *pubsub.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(event)
		}
	}
}

func (s *Subscriber) handleEvent(event *pubsub.Event) {
	l := log.L()

	var payload pubsub.RoomBroadcastPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		l.Warn().Err(err).Msg("room pubsub: invalid payload")
		return
	}
	roomID := payload.RoomID
	if roomID == "" {
		roomID = event.RoomID
	}
	if roomID == "" || len(payload.Message) == 0 {
		return
	}

	l.Debug().Str("room_id", roomID).Str("origin", event.Origin).Msg("relaying room event")
	s.hub.BroadcastRawToRoom(roomID, payload.Message, payload.ExcludeClientID)
}
