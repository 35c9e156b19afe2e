package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/pkg/errors"
)

// Invalidation is the pub/sub payload fanned out to every display node when a
// school's revision moves. Ts is the publisher's wall clock in milliseconds.
type Invalidation struct {
	Type     string `json:"type"`
	SchoolID int64  `json:"school_id"`
	Revision int64  `json:"revision"`
	Ts       int64  `json:"ts"`
}

// PublishInvalidate announces a new revision on the school's channel. The
// snapshot for the revision must already be readable when this is called.
func (s *Store) PublishInvalidate(ctx context.Context, school, rev int64) error {
	payload, err := json.Marshal(Invalidation{
		Type:     display.MsgInvalidate,
		SchoolID: school,
		Revision: rev,
		Ts:       time.Now().UnixMilli(),
	})
	if err != nil {
		return errors.Wrap(err, "could not encode invalidation")
	}
	err = s.client.Publish(ctx, channelName(school), payload).Err()
	return errors.Wrap(err, "could not publish invalidation")
}

// SubscribeInvalidate consumes invalidations for every school on this node.
// The returned channel closes when ctx is canceled or the subscription is
// closed via the returned closer. Malformed payloads are dropped; a consumer
// that falls behind loses the oldest messages rather than blocking the
// subscriber loop.
func (s *Store) SubscribeInvalidate(ctx context.Context) (<-chan Invalidation, func() error) {
	pubsub := s.client.PSubscribe(ctx, channelPattern)
	// Wait for the subscription confirmation so publishes issued right after
	// this call cannot be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		log.WithError(err).Warn("Subscription not confirmed, relying on resubscribe")
	}
	out := make(chan Invalidation, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var inv Invalidation
				if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
					log.WithError(err).WithField("channel", msg.Channel).Warn("Dropping malformed invalidation")
					continue
				}
				if inv.SchoolID == 0 {
					id, err := schoolFromChannel(msg.Channel)
					if err != nil {
						log.WithError(err).Warn("Dropping invalidation without school")
						continue
					}
					inv.SchoolID = id
				}
				select {
				case out <- inv:
				default:
					log.WithField("school", inv.SchoolID).Warn("Invalidation consumer lagging, dropping message")
				}
			}
		}
	}()
	return out, pubsub.Close
}
