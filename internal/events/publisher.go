// Package events delivers committed engine mutations to the outside world:
// an MQTT topic for interested consumers (the presentation layer subscribes
// instead of binding to engine state) and the snapshot store for durability.
package events

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/unibike/campus-bikeshare/internal/engine"
)

// Event is the wire shape published for each committed mutation. Seq is the
// engine's commit counter; consumers use it to reorder or deduplicate.
type Event struct {
	Seq uint64    `json:"seq"`
	Op  string    `json:"op"`
	At  time.Time `json:"at"`
}

// MQTTPublisher publishes one event per committed mutation on
// "<prefix>/mutations".
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTTPublisher connects to the broker and returns a publisher.
func NewMQTTPublisher(brokerURL, topicPrefix, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, mqtt.ErrNotConnected
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &MQTTPublisher{client: client, topicPrefix: topicPrefix}, nil
}

// Committed implements engine.CommitListener.
func (p *MQTTPublisher) Committed(m engine.Mutation) {
	payload, err := json.Marshal(Event{Seq: m.Seq, Op: m.Op, At: m.At})
	if err != nil {
		log.WithError(err).Error("Failed to marshal mutation event")
		return
	}
	topic := p.topicPrefix + "/mutations"
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.WithError(err).WithField("topic", topic).Error("Failed to publish mutation event")
		}
	}()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
