package ledger

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// subscribePollInterval is how often the poll loop asks the fullnode for new
// events.
const subscribePollInterval = 5 * time.Second

// pollSubscription implements interfaces.EventSubscription over a cursor
// polling loop.
type pollSubscription struct {
	cancel   context.CancelFunc
	err      chan error
	stopOnce sync.Once
}

func (s *pollSubscription) Unsubscribe() {
	s.stopOnce.Do(s.cancel)
}

func (s *pollSubscription) Err() <-chan error {
	return s.err
}

// SubscribeEvents follows the event stream for the filter, delivering events
// oldest-first from the time of subscription onward. Delivery may lag the
// chain and may replay events across restarts; consumers must treat handling
// as idempotent.
func (c *Client) SubscribeEvents(ctx context.Context, filter interfaces.EventFilter, onEvent func(interfaces.LedgerEvent)) (interfaces.EventSubscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &pollSubscription{cancel: cancel, err: make(chan error, 1)}

	go c.pollLoop(subCtx, filter, onEvent, sub)
	return sub, nil
}

func (c *Client) pollLoop(ctx context.Context, filter interfaces.EventFilter, onEvent func(interfaces.LedgerEvent), sub *pollSubscription) {
	var cursor *interfaces.EventCursor

	// Establish the tail position first so the subscription only sees events
	// from now on; historical reconciliation walks the query API directly.
	if page, err := c.QueryEvents(ctx, filter, 1, nil, true); err == nil && len(page.Events) > 0 {
		cursor = &interfaces.EventCursor{
			TxDigest: page.Events[0].TxDigest,
			EventSeq: formatSeq(page.Events[0].EventSeq),
		}
	}

	ticker := time.NewTicker(subscribePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sub.err <- ctx.Err()
			return
		case <-ticker.C:
		}

		for {
			page, err := c.QueryEvents(ctx, filter, 50, cursor, false)
			if err != nil {
				c.log.Warn("Event poll failed, will retry", "err", err, slog.String("eventType", filter.EventType))
				break
			}
			for _, ev := range page.Events {
				onEvent(ev)
			}
			if page.NextCursor != nil {
				cursor = page.NextCursor
			}
			if !page.HasNextPage {
				break
			}
		}
	}
}

// formatSeq renders an event sequence number the way fullnodes expect
// cursors: as a decimal string.
func formatSeq(seq uint64) string {
	return strconv.FormatUint(seq, 10)
}
