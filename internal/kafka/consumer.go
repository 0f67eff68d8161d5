package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"employee-coupon/internal/config"
	"employee-coupon/internal/logger"
	"employee-coupon/internal/models"

	"github.com/IBM/sarama"
)

// EventHandler processes a single decoded customer event.
type EventHandler func(ctx context.Context, event *models.Event) error

// Consumer reads customer lifecycle events from Kafka and dispatches them
// to registered handlers by event type.
type Consumer struct {
	consumer sarama.ConsumerGroup
	log      *logger.Logger
	topics   []string
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.RWMutex
	handlers map[models.EventType]EventHandler
}

// NewConsumer creates a consumer group for the configured customer topics.
func NewConsumer(cfg *config.KafkaConfig, log *logger.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		consumer: group,
		log:      log,
		topics:   []string{cfg.Topics.Customers},
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[models.EventType]EventHandler),
	}, nil
}

// NewTestConsumer wraps an existing consumer group, used in tests.
func NewTestConsumer(group sarama.ConsumerGroup, log *logger.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		consumer: group,
		log:      log,
		topics:   []string{"customers"},
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[models.EventType]EventHandler),
	}
}

// RegisterHandler binds a handler to an event type. The last registration
// for a type wins.
func (c *Consumer) RegisterHandler(eventType models.EventType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
}

// Handler returns the handler registered for an event type, or nil.
func (c *Consumer) Handler(eventType models.EventType) EventHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers[eventType]
}

// HandlerCount returns the number of registered handlers.
func (c *Consumer) HandlerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// Start begins consuming in a background goroutine. Consume returns on
// every rebalance, so it runs in a loop until the context is cancelled.
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			err := c.consumer.Consume(c.ctx, c.topics, c)
			if c.ctx.Err() != nil {
				return
			}
			if err != nil {
				c.log.WithError(err).Error("Consumer group session ended with error")
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumer.Errors() {
			c.log.WithError(err).Error("Kafka consumer error")
		}
	}()

	c.log.WithField("topics", c.topics).Info("Kafka consumer started")
	return nil
}

// Stop cancels the consume loop and closes the underlying group.
func (c *Consumer) Stop() error {
	c.cancel()
	err := c.consumer.Close()
	c.wg.Wait()
	c.log.Info("Kafka consumer stopped")
	return err
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines exit.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a single partition claim.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := c.processMessage(msg); err != nil {
			c.log.WithError(err).WithFields(map[string]interface{}{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Error("Failed to process message")
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (c *Consumer) processMessage(msg *sarama.ConsumerMessage) error {
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	handler := c.Handler(event.Type)
	if handler == nil {
		c.log.WithField("event_type", event.Type).Debug("No handler registered for event type")
		return nil
	}

	c.log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Debug("Processing event")

	return handler(c.ctx, &event)
}
