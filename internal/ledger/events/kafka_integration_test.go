//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"bioauth/internal/ledger/events"
	"bioauth/internal/ledger/models"
	"bioauth/internal/ticket"
	"bioauth/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	kafka *containers.KafkaContainer
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())
}

func (s *KafkaPublisherSuite) TestPublishedEventsAreConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "ledger-events-test"

	pub, err := events.NewKafkaPublisher(ctx, s.kafka.Brokers, topic, events.WithTopicLayout(1, 1))
	s.Require().NoError(err)
	defer pub.Close(ctx)

	// A second publisher on the same topic must tolerate the existing topic.
	again, err := events.NewKafkaPublisher(ctx, s.kafka.Brokers, topic, events.WithTopicLayout(1, 1))
	s.Require().NoError(err)
	again.Close(ctx)

	var pk ticket.PublicKey
	pk[0] = 0x42
	s.Require().NoError(pub.Publish(ctx, events.Event{
		Kind:      events.KindAuthenticated,
		PublicKey: pk,
		Nonce:     9,
		Block:     models.BlockNumber(3),
		ExpiresAt: models.BlockNumber(13),
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.kafka.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(pk.String(), string(records[0].Key))

	var got events.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(events.KindAuthenticated, got.Kind)
	s.Equal(pk, got.PublicKey)
	s.Equal(ticket.Nonce(9), got.Nonce)
	s.False(got.Timestamp.IsZero())
}
