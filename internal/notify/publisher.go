package notify

import (
	"encoding/json"
	"log"
	"time"

	"workshop-service/internal/model"

	"github.com/nats-io/nats.go"
)

const (
	SubjectRegistrationConfirmed = "registration.confirmed"
	SubjectRegistrationCancelled = "registration.cancelled"
)

// RegistrationEvent is published whenever a registration changes state, so
// downstream workers can send confirmations without coupling to this service.
type RegistrationEvent struct {
	EventType  string                   `json:"event_type"`
	WorkshopID int64                    `json:"workshop_id"`
	UserID     int64                    `json:"user_id"`
	Status     model.RegistrationStatus `json:"status"`
	OccurredAt time.Time                `json:"occurred_at"`
}

type Publisher interface {
	PublishRegistration(subject string, event RegistrationEvent)
	Close()
}

type natsPublisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS when a URL is configured; an empty URL yields
// a no-op publisher so deployments without a broker keep working.
func NewPublisher(natsURL string) (Publisher, error) {
	if natsURL == "" {
		return noopPublisher{}, nil
	}

	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &natsPublisher{conn: conn}, nil
}

func (p *natsPublisher) PublishRegistration(subject string, event RegistrationEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", subject, err)
		return
	}
	// Event delivery is best effort; a broker hiccup must not fail the request.
	if err := p.conn.Publish(subject, data); err != nil {
		log.Printf("Failed to publish %s event: %v", subject, err)
	}
}

func (p *natsPublisher) Close() {
	p.conn.Drain()
}

type noopPublisher struct{}

func (noopPublisher) PublishRegistration(string, RegistrationEvent) {}

func (noopPublisher) Close() {}
