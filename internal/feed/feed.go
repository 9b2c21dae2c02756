// Package feed publishes accepted field-log records to NATS so a remote
// coordination display can follow traffic live instead of polling the store.
package feed

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"sar_tracker/internal/fieldlog"
)

// Subjects for the live feed.
const (
	SubjectStatus       = "sar.status"
	SubjectTransmission = "sar.transmission"
)

// Publisher sends JSON-encoded records over a NATS connection. The local
// store remains authoritative; publish failures are logged and dropped.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials the NATS server at url and returns a publisher.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("sar_tracker"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

// NotifyStatus publishes a status entry on the status subject.
func (p *Publisher) NotifyStatus(e fieldlog.StatusEntry) {
	p.publish(SubjectStatus, e)
}

// NotifyTransmission publishes a transmission on the transmission subject.
func (p *Publisher) NotifyTransmission(t fieldlog.Transmission) {
	p.publish(SubjectTransmission, t)
}

func (p *Publisher) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("feed: marshal %s: %v", subject, err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		log.Printf("feed: publish %s: %v", subject, err)
	}
}
