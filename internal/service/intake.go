package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/BloggingApp/realtime-notifications/internal/dto"
)

func (s *notificationService) StartConsuming(ctx context.Context) error {
	if s.rabbitmq == nil {
		return nil
	}

	msgs, err := s.rabbitmq.Consume(s.intakeQueue)
	if err != nil {
		return err
	}

	s.logger.Sugar().Infof("consuming notifications from queue(%s)", s.intakeQueue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return ErrIntakeClosed
			}

			requeue, err := s.processIntake(ctx, msg.Body)
			if err == nil {
				msg.Ack(false)
				continue
			}

			s.logger.Sugar().Errorf("failed to process message from queue(%s): %s", s.intakeQueue, err.Error())
			msg.Nack(false, requeue)
		}
	}
}

// processIntake creates the notification carried by body. requeue reports
// whether a failure is worth retrying.
func (s *notificationService) processIntake(ctx context.Context, body []byte) (bool, error) {
	var message dto.MQCreateNotification
	if err := json.Unmarshal(body, &message); err != nil {
		return false, err
	}

	if _, err := s.Create(ctx, message.Request()); err != nil {
		return !errors.Is(err, ErrInvalidInput), err
	}

	return false, nil
}
