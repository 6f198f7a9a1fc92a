package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/qs-lzh/miccheck/internal/mq"
	"github.com/qs-lzh/miccheck/internal/service/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, queueName string, message any) error
}

type BookingWorkflow struct {
	BookingService domain.BookingService
	Publisher      EventPublisher
	Logger         *zap.Logger
}

// NewBookingWorkflow builds the workflow. publisher may be nil, in which case
// no booking events are sent.
func NewBookingWorkflow(bookingService domain.BookingService, publisher EventPublisher, logger *zap.Logger) *BookingWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingWorkflow{
		BookingService: bookingService,
		Publisher:      publisher,
		Logger:         logger,
	}
}

// Book creates the bookings and then announces them. The bookings are
// committed before the event is sent, so a failed publish is logged and not
// returned.
func (w *BookingWorkflow) Book(ctx context.Context, req domain.BookingRequest) (*domain.BookingResult, error) {
	result, err := w.BookingService.CreateBooking(ctx, req)
	if err != nil {
		return nil, err
	}

	message := NewBookingCreatedMessage(result)
	w.Logger.Info("bookings created",
		zap.Uints("booking_ids", message.BookingIDs),
		zap.Uints("spot_ids", message.SpotIDs),
		zap.String("total", message.Total.StringFixed(2)),
		zap.String("coupon_code", message.CouponCode),
	)

	if w.Publisher == nil {
		return result, nil
	}
	if err := w.Publisher.Publish(ctx, mq.BookingCreatedQueue, message); err != nil {
		w.Logger.Warn("failed to publish booking created message",
			zap.Uints("booking_ids", message.BookingIDs),
			zap.Error(err),
		)
	}
	return result, nil
}

func NewBookingCreatedMessage(result *domain.BookingResult) mq.BookingCreatedMessage {
	message := mq.BookingCreatedMessage{
		Total: result.Total,
	}
	for _, booking := range result.Bookings {
		message.BookingIDs = append(message.BookingIDs, booking.ID)
		message.SpotIDs = append(message.SpotIDs, booking.SpotID)
		message.PerformerName = booking.PerformerName
		message.Email = booking.Email
		if booking.CreatedAt.After(message.CreatedAt) {
			message.CreatedAt = booking.CreatedAt
		}
	}
	if result.Coupon != nil {
		message.CouponCode = result.Coupon.Code
	}
	return message
}
