package webhook_api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ticket-relay/internal/counter"
	"ticket-relay/internal/webhook"
)

// maxBodySize caps inbound webhook bodies at 1 MiB.
const maxBodySize = 1 << 20

// Coordinator is the slice of the counter service the webhook path uses.
type Coordinator interface {
	ApplyWebhookDelta(ctx context.Context, eventName string, delta int) (counter.Result, error)
}

type Handler struct {
	Counters Coordinator
}

// HandleSale receives one ticket-sale webhook. The upstream platform gets
// terse string responses: 200 on success or ignore, 400 when the payload is
// unusable, 500 when the store is down. The counter commit always precedes
// the response; the push notification never delays it.
func (h *Handler) HandleSale(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "unreadable request body", http.StatusBadRequest)
		return
	}

	sale, err := webhook.Normalize(body, r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, "event_name missing", http.StatusBadRequest)
		return
	}

	result, err := h.Counters.ApplyWebhookDelta(r.Context(), sale.EventName, sale.Delta)
	if err != nil {
		switch {
		case errors.Is(err, counter.ErrInvalidDelta),
			errors.Is(err, counter.ErrInvalidKey),
			errors.Is(err, counter.ErrNegativeTotal):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "failed to record sale: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if result.Ignored {
		fmt.Fprintf(w, "event %s ignored", result.EventName)
		return
	}
	fmt.Fprintf(w, "recorded %d tickets for %s (total %d)", result.Delta, result.EventName, result.NewTotal)
}
