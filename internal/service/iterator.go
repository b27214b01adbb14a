// Package service holds the client-side state machinery shared by the views:
// the paginated list Loader and the order status Iterator.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Iterator turns raw order-status messages into StatusUpdates for the orders
// the filter accepts. Messages for other customers' orders are committed and
// skipped so the group does not re-read them.
type Iterator struct {
	msgIterator MessageIterator
	filter      OrderFilter
	logger      *slog.Logger

	mu   sync.Mutex
	last map[string]string
}

func NewIterator(it MessageIterator, filter OrderFilter, logger *slog.Logger) *Iterator {
	if filter == nil {
		filter = func(string) bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Iterator{
		msgIterator: it,
		filter:      filter,
		logger:      logger.With("component", "order-watcher"),
		last:        make(map[string]string),
	}
}

// Updates streams status changes until the message channel closes or ctx ends.
// Repeated events carrying an unchanged status for an order are dropped.
func (it *Iterator) Updates(ctx context.Context) <-chan StatusUpdate {
	out := make(chan StatusUpdate)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-it.msgIterator.Messages():
				if !ok {
					return
				}
				update, keep := it.decode(msg.Value)
				if keep {
					update.Partition = msg.Partition
					update.Offset = msg.Offset
					select {
					case out <- update:
					case <-ctx.Done():
						return
					}
				}
				if err := it.msgIterator.CommitOffset(ctx, msg); err != nil {
					it.logger.Warn("failed to commit offset", "partition", msg.Partition, "offset", msg.Offset, "error", err)
				}
			}
		}
	}()
	return out
}

func (it *Iterator) decode(value []byte) (StatusUpdate, bool) {
	var u StatusUpdate
	if err := json.Unmarshal(value, &u.Event); err != nil {
		it.logger.Warn("skipping malformed order event", "error", err)
		return u, false
	}
	if u.Event.OrderID == "" || !it.filter(u.Event.OrderID) {
		return u, false
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.last[u.Event.OrderID] == string(u.Event.Status) {
		return u, false
	}
	it.last[u.Event.OrderID] = string(u.Event.Status)
	return u, true
}
