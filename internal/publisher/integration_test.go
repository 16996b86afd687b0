//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Krumil/hacksignal/internal/alert"
	"github.com/Krumil/hacksignal/internal/domain"
	"github.com/Krumil/hacksignal/testdata/utils"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func testMessage(priority alert.Priority, decision domain.RoutingDecision) alert.Message {
	return alert.Message{
		Title:    "Hackathon alert: 225 USD/h",
		Body:     "Prize: 10800.00 USD (USD) | Duration: 48h | ROI: 225.00 USD/h",
		Priority: priority,
		Decision: decision,
		Event: domain.EnrichedEvent{
			PostID:               "100",
			PrizeValueUSD:        10800,
			CurrencyDetected:     "USD",
			DurationHours:        48,
			ROIScore:             225,
			RegistrationDeadline: utils.Ptr(time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC)),
			SourceURL:            "https://x.com/devrel/status/100",
		},
	}
}

func (s *RabbitMQIntegrationSuite) TestSender_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	sender, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(sender)

	err = sender.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestSender_MessageFormat() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-format",
		RoutingKey: "test-routing-key-format",
		QueueName:  "test-queue-format",
	}

	sender, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer sender.Close()

	err = sender.Send(s.ctx, testMessage(alert.PriorityHigh, domain.DecisionImmediate))
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(7), msg.Priority)

	var received AlertMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)

	s.Equal(alert.PriorityHigh, received.Alert.Priority)
	s.Equal(domain.DecisionImmediate, received.Alert.Decision)
	s.Equal("100", received.Alert.Event.PostID)
	s.InDelta(225.0, received.Alert.Event.ROIScore, 1e-6)
	s.Require().NotNil(received.Alert.Event.RegistrationDeadline)
	s.Equal(2024, received.Alert.Event.RegistrationDeadline.Year())
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestSender_DigestPriority() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-digest",
		RoutingKey: "test-routing-key-digest",
		QueueName:  "test-queue-digest",
	}

	sender, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer sender.Close()

	err = sender.Send(s.ctx, testMessage(alert.PriorityNormal, domain.DecisionDigest))
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal(uint8(4), msg.Priority)

	var received AlertMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal(domain.DecisionDigest, received.Alert.Decision)
}

func (s *RabbitMQIntegrationSuite) TestSender_MessagePersistence() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-persist",
		RoutingKey: "test-routing-key-persist",
		QueueName:  "test-queue-persist",
	}

	sender, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer sender.Close()

	err = sender.Send(s.ctx, testMessage(alert.PriorityHigh, domain.DecisionImmediate))
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
