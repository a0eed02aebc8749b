package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ticket-relay/internal/logger"
)

const defaultEndpoint = "https://api.pushover.net/1/messages.json"

// Pushover relays sale summaries to the Pushover message API. Delivery is
// best effort and at most once: every failure is logged and dropped, and
// the committed counter update is never reconsidered.
type Pushover struct {
	Token    string
	User     string
	Endpoint string
	Client   *http.Client
	Logger   *logger.Logger
}

func NewPushover(token, user string, log *logger.Logger) *Pushover {
	return &Pushover{
		Token:    token,
		User:     user,
		Endpoint: defaultEndpoint,
		Client:   &http.Client{Timeout: 5 * time.Second},
		Logger:   log,
	}
}

// Notify pushes "<delta> new ticket(s) sold (total: N)" under the event's
// name. It returns nothing: there is no outcome a caller could act on.
func (p *Pushover) Notify(eventName string, delta, newTotal int) {
	if p.Token == "" || p.User == "" {
		return
	}

	wording := "new tickets sold"
	if delta == 1 {
		wording = "new ticket sold"
	}
	message := fmt.Sprintf("%d %s (total: %d)", delta, wording, newTotal)

	payload, err := json.Marshal(map[string]string{
		"token":   p.Token,
		"user":    p.User,
		"title":   eventName,
		"message": message,
	})
	if err != nil {
		p.logError(eventName, fmt.Sprintf("failed to build message: %v", err))
		return
	}

	resp, err := p.Client.Post(p.Endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		p.logError(eventName, fmt.Sprintf("push failed: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logError(eventName, fmt.Sprintf("push rejected with status %d", resp.StatusCode))
		return
	}
	if p.Logger != nil {
		p.Logger.LogNotify(eventName, message)
	}
}

func (p *Pushover) logError(eventName, message string) {
	if p.Logger != nil {
		p.Logger.Error("NOTIFY", fmt.Sprintf("[%s] %s", eventName, message))
	}
}
