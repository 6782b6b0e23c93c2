package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"smartparking/internal/db"
	"smartparking/internal/repository"
	"smartparking/internal/syncbus"
)

// SenderService listens on the sync bus and tells booking owners about new and
// cancelled bookings by email and SMS. Delivery failures are logged only.
type SenderService struct {
	Engine   *ReservationService
	Users    repository.UserRepository
	Receipts *ReceiptFormatter
	Email    EmailSender
	SMS      SMSSender
	logger   *zap.Logger
}

func NewSenderService(engine *ReservationService, users repository.UserRepository, receipts *ReceiptFormatter,
	email EmailSender, sms SMSSender, logger *zap.Logger) *SenderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SenderService{Engine: engine, Users: users, Receipts: receipts, Email: email, SMS: sms, logger: logger}
}

// Run consumes bus events until ctx ends. sub must come from the engine's bus.
func (s *SenderService) Run(ctx context.Context, sub *syncbus.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			switch ev.Kind {
			case syncbus.BookingCreated, syncbus.BookingCancelled:
				if err := s.NotifyBooking(ev.BookingID); err != nil {
					s.logger.Warn("notify_failed", zap.String("booking_id", ev.BookingID), zap.Error(err))
				}
			}
		}
	}
}

// NotifyBooking re-reads the booking and sends its current state to the owner.
func (s *SenderService) NotifyBooking(bookingID string) error {
	b, err := s.Engine.GetBooking(bookingID, "")
	if err != nil {
		return err
	}
	if b.Owner == "" {
		return nil
	}
	user, err := s.Users.GetByEmail(b.Owner)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no user %s for booking %s", b.Owner, b.ID)
	}
	lot, err := s.Engine.GetLot(b.LotID)
	if err != nil {
		lot = db.ParkingLot{ID: b.LotID}
	}

	word := "confirmed"
	if b.Status == db.StatusCancelled {
		word = "cancelled"
	}

	var errs []error
	if s.Email != nil {
		subject := fmt.Sprintf("Your Smart Parking booking is %s - %s", word, b.ID)
		html, herr := s.Receipts.HTML(b, lot)
		if herr != nil {
			s.logger.Warn("receipt_html_failed", zap.String("booking_id", b.ID), zap.Error(herr))
		}
		if err := s.Email.SendEmail(user.Email, user.Email, subject, string(s.Receipts.Format(b, lot)), html); err != nil && !errors.Is(err, ErrSenderDisabled) {
			errs = append(errs, err)
		}
	}
	if s.SMS != nil && user.Phone != "" {
		body := fmt.Sprintf("Smart Parking: booking %s at %s is %s. Spot %s, %s to %s.",
			b.ID, lot.Name, word, b.SpotLabel,
			b.StartTime.In(s.Receipts.loc).Format("02/01 15:04"), b.EndTime.In(s.Receipts.loc).Format("02/01 15:04"))
		if err := s.SMS.SendSMS(user.Phone, body); err != nil && !errors.Is(err, ErrSenderDisabled) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
