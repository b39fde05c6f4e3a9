package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, event *TaskEvent) error

type Consumer struct {
	consumer sarama.ConsumerGroup
	logger   *zap.Logger
}

func NewConsumer(brokers []string, groupID string, logger *zap.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c, logger: logger}, nil
}

type consumerHandler struct {
	fn     MessageHandler
	ctx    context.Context
	logger *zap.Logger
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.handle(msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *consumerHandler) handle(msg *sarama.ConsumerMessage) {
	event, err := decodeEvent(msg.Value)
	if err != nil {
		h.logger.Warn("Skipping malformed task event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}

	if err := h.fn(h.ctx, event); err != nil {
		h.logger.Error("Task event handler failed",
			zap.String("task_id", event.TaskID),
			zap.Error(err),
		)
	}
}

func decodeEvent(data []byte) (*TaskEvent, error) {
	var event TaskEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.TaskID == "" {
		return nil, errors.New("task event without task_id")
	}
	return &event, nil
}

// Consume feeds events from topic to handler until ctx is done. The group
// session ends on every rebalance, so it is rejoined in a loop.
func (c *Consumer) Consume(ctx context.Context, topic string, handler MessageHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx, logger: c.logger}
	for {
		if err := c.consumer.Consume(ctx, []string{topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
