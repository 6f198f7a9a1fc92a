package workflow

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/qs-lzh/miccheck/internal/mq"
)

// NotificationWorkflow consumes booking events and records a confirmation
// for each.
type NotificationWorkflow struct {
	logger *zap.Logger
}

func NewNotificationWorkflow(logger *zap.Logger) *NotificationWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorkflow{
		logger: logger.Named("notification"),
	}
}

func (w *NotificationWorkflow) Start(mqConn *amqp.Connection) error {
	if err := w.ConsumeBookingCreated(mqConn); err != nil {
		return err
	}
	return nil
}

func (w *NotificationWorkflow) ConsumeBookingCreated(conn *amqp.Connection) error {
	ch, err := mq.NewChannel(conn)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(mq.BookingCreatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.handleBookingCreated(msg); err != nil {
				w.logger.Error("failed to handle booking created message",
					zap.String("message_id", msg.MessageId),
					zap.Error(err),
				)
			}
		}
	}()

	return nil
}

func (w *NotificationWorkflow) handleBookingCreated(msg amqp.Delivery) error {
	var message mq.BookingCreatedMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		// a malformed message will never parse, so do not requeue it
		msg.Nack(false, false)
		return err
	}
	if len(message.BookingIDs) == 0 {
		msg.Nack(false, false)
		return fmt.Errorf("message %s carries no bookings", msg.MessageId)
	}

	w.logger.Info("booking confirmed",
		zap.String("message_id", msg.MessageId),
		zap.String("performer_name", message.PerformerName),
		zap.String("email", message.Email),
		zap.Uints("booking_ids", message.BookingIDs),
		zap.Uints("spot_ids", message.SpotIDs),
		zap.String("total", message.Total.StringFixed(2)),
		zap.String("coupon_code", message.CouponCode),
		zap.Time("created_at", message.CreatedAt),
	)

	msg.Ack(false)

	return nil
}
