package domain

import (
	"encoding/json"
	"time"
)

// Routing keys for the two integration payload kinds.
const (
	RoutingKeyCustomers = "customer.sync"
	RoutingKeyProducts  = "product.sync"
)

// Envelope wraps a published payload with a per-publish correlation id,
// timestamp and producer tag. Envelopes are never mutated after
// construction.
type Envelope struct {
	CorrelationID string          `json:"correlation_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	Data          json.RawMessage `json:"data"`
}

// StreamMessage is an envelope as delivered by the broker, together with the
// coordinates needed to acknowledge it.
type StreamMessage struct {
	Stream     string
	MessageID  string
	RoutingKey string
	Envelope   Envelope
}
