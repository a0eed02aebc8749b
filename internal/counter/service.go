package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ticket-relay/internal/logger"
)

// Store is the persistence contract for per-event ticket totals. Mutations
// on the same event name serialize inside the store; mutations on different
// names must not contend. Every engine error wraps ErrStoreUnavailable
// except the negative-total rejection, which is ErrNegativeTotal.
type Store interface {
	Increment(ctx context.Context, eventName string, delta int) (int, error)
	SetAbsolute(ctx context.Context, eventName string, total int) (int, error)
	GetAll(ctx context.Context) (map[string]int, error)
	Delete(ctx context.Context, eventName string) (bool, error)
	ResetAll(ctx context.Context) error
}

// Notifier delivers a best-effort human-readable alert. It never returns:
// delivery failures must not reach the webhook caller.
type Notifier interface {
	Notify(eventName string, delta, newTotal int)
}

// SalePublisher streams committed sales to an audit topic.
type SalePublisher interface {
	PublishSale(saleID, eventName string, delta, newTotal int) error
}

// Result reports the outcome of one coordinated update.
type Result struct {
	EventName string
	Delta     int
	NewTotal  int
	Ignored   bool
}

// CounterService coordinates one logical update per request: it validates
// input, applies the mutation through the store under its atomicity
// guarantees, and fans committed webhook sales out to the notifier and
// publisher off the request path.
type CounterService struct {
	Store     Store
	Notifier  Notifier
	Publisher SalePublisher
	Logger    *logger.Logger

	ignored      map[string]struct{}
	storeTimeout time.Duration
}

func NewCounterService(store Store, notifier Notifier, publisher SalePublisher, log *logger.Logger, ignoredEvents []string, storeTimeout time.Duration) *CounterService {
	ignored := make(map[string]struct{}, len(ignoredEvents))
	for _, name := range ignoredEvents {
		ignored[name] = struct{}{}
	}
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &CounterService{
		Store:        store,
		Notifier:     notifier,
		Publisher:    publisher,
		Logger:       log,
		ignored:      ignored,
		storeTimeout: storeTimeout,
	}
}

// ApplyWebhookDelta records one webhook sale. The store mutation commits
// before the caller gets a response; notification and publishing happen on
// a detached goroutine and never affect the outcome.
func (s *CounterService) ApplyWebhookDelta(ctx context.Context, eventName string, delta int) (Result, error) {
	if eventName == "" {
		return Result{}, ErrInvalidKey
	}
	if delta < 0 {
		return Result{}, ErrInvalidDelta
	}
	if _, skip := s.ignored[eventName]; skip {
		if s.Logger != nil {
			s.Logger.LogWebhook(eventName, "event on ignore list, skipping")
		}
		return Result{EventName: eventName, Delta: delta, Ignored: true}, nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	newTotal, err := s.Store.Increment(storeCtx, eventName, delta)
	if err != nil {
		return Result{}, err
	}

	saleID := uuid.NewString()
	if s.Logger != nil {
		s.Logger.LogStore("INCREMENT", eventName, fmt.Sprintf("sale %s: +%d, total %d", saleID, delta, newTotal))
	}

	go s.fanOut(saleID, eventName, delta, newTotal)

	return Result{EventName: eventName, Delta: delta, NewTotal: newTotal}, nil
}

func (s *CounterService) fanOut(saleID, eventName string, delta, newTotal int) {
	if s.Notifier != nil {
		s.Notifier.Notify(eventName, delta, newTotal)
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishSale(saleID, eventName, delta, newTotal); err != nil && s.Logger != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish sale %s: %v", saleID, err))
		}
	}
}

// SetAbsolute replaces a counter outright through the store's atomic upsert.
// Reading the current value and sending a computed diff would race with
// concurrent webhook increments, so no such path exists.
func (s *CounterService) SetAbsolute(ctx context.Context, eventName string, total int) (Result, error) {
	if eventName == "" {
		return Result{}, ErrInvalidKey
	}
	if total < 0 {
		return Result{}, ErrInvalidTotal
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	newTotal, err := s.Store.SetAbsolute(storeCtx, eventName, total)
	if err != nil {
		return Result{}, err
	}
	if s.Logger != nil {
		s.Logger.LogAdmin("SET", fmt.Sprintf("%s set to %d", eventName, newTotal))
	}
	return Result{EventName: eventName, NewTotal: newTotal}, nil
}

// Delete removes one counter and reports whether it existed.
func (s *CounterService) Delete(ctx context.Context, eventName string) (bool, error) {
	if eventName == "" {
		return false, ErrInvalidKey
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	deleted, err := s.Store.Delete(storeCtx, eventName)
	if err != nil {
		return false, err
	}
	if s.Logger != nil {
		s.Logger.LogAdmin("DELETE", fmt.Sprintf("%s removed=%t", eventName, deleted))
	}
	return deleted, nil
}

// ResetAll clears every counter to nonexistence.
func (s *CounterService) ResetAll(ctx context.Context) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.Store.ResetAll(storeCtx); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.LogAdmin("RESET", "all ticket counters cleared")
	}
	return nil
}

// Snapshot returns every counter. Each value reflects a completed write; no
// cross-key consistency is promised.
func (s *CounterService) Snapshot(ctx context.Context) (map[string]int, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.Store.GetAll(storeCtx)
}
