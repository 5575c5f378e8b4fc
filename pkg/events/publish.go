package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// Publisher sends a JSON-serializable payload to a topic.
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// PublisherManager serializes payloads and hands them to a watermill publisher,
// stamping each outgoing message with a sequence number.
type PublisherManager struct {
	publisher      message.Publisher
	sequenceNumber uint64
	mutex          sync.Mutex
}

func NewPublisherManager(publisher message.Publisher) *PublisherManager {
	return &PublisherManager{
		publisher: publisher,
	}
}

func (s *PublisherManager) Publish(topic string, payload interface{}) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("sequence_number", fmt.Sprintf("%d", s.sequenceNumber))
	s.sequenceNumber++

	if err := s.publisher.Publish(topic, msg); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to publish")
		return err
	}
	return nil
}

// PublishBlind publishes and only logs failures.
func PublishBlind(p Publisher, topic string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(topic, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}) error { return nil }

var (
	_ Publisher = (*PublisherManager)(nil)
	_ Publisher = NopPublisher{}
)
