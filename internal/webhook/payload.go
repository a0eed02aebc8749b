package webhook

import (
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Field aliases accepted from the upstream platform, in priority order.
// Kept as data so a deployment can audit exactly which spelling wins when a
// payload carries several of them.
var (
	eventAliases = []string{"event_name", "event", "title", "name", "event_id"}
	deltaAliases = []string{"ticket_count", "tickets_sold", "tickets", "quantity", "amount", "increment"}
)

// ErrNoEventKey is the only hard normalization failure: without an event
// identifier there is nothing to count against.
var ErrNoEventKey = errors.New("no event identifier in webhook payload")

// Sale is the canonical form of one inbound webhook.
type Sale struct {
	EventName string
	Delta     int
}

// Normalize turns a raw webhook body into a Sale. The upstream sender is
// unreliable about both encoding and field names: the body may arrive as a
// JSON object, as JSON double-encoded into a string, or as an urlencoded
// form, and every logical field shows up under one of several spellings.
// An unusable delta degrades to 0 instead of failing the request.
func Normalize(rawBody []byte, contentType string) (Sale, error) {
	fields := decodeBody(rawBody, contentType)

	name := firstString(fields, eventAliases)
	if name == "" {
		return Sale{}, ErrNoEventKey
	}
	return Sale{EventName: name, Delta: firstInt(fields, deltaAliases)}, nil
}

func decodeBody(raw []byte, contentType string) map[string]any {
	if strings.Contains(contentType, "x-www-form-urlencoded") {
		if fields := decodeForm(raw); fields != nil {
			return fields
		}
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}

	// JSON delivered as a quoted string
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if err := json.Unmarshal([]byte(text), &obj); err == nil {
			return obj
		}
	}

	return decodeForm(raw)
}

func decodeForm(raw []byte) map[string]any {
	values, err := url.ParseQuery(strings.TrimSpace(string(raw)))
	if err != nil || len(values) == 0 {
		return nil
	}
	fields := make(map[string]any, len(values))
	for key := range values {
		fields[key] = values.Get(key)
	}
	return fields
}

// firstString returns the first alias present with a non-empty value.
func firstString(fields map[string]any, aliases []string) string {
	for _, alias := range aliases {
		if value, ok := fields[alias]; ok {
			if s := asString(value); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstInt resolves against the first alias present; a present but
// unparsable value degrades to 0 rather than falling through to later
// aliases, keeping resolution deterministic.
func firstInt(fields map[string]any, aliases []string) int {
	for _, alias := range aliases {
		if value, ok := fields[alias]; ok {
			return asInt(value)
		}
	}
	return 0
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func asInt(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int(parsed)
		}
		return 0
	default:
		return 0
	}
}
