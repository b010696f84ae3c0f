package service

import (
	"context"
	"fmt"
	"time"

	"github.com/adaze/marketplace-api/config"
	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/repository"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/utils"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type NotificationServiceImpl struct {
	repo        repository.NotificationRepository
	profileRepo repository.ProfileRepository
	config      *config.Config
	mailer      *utils.Mailer
	sendEmail   func(message *gomail.Message) error
}

func CreateNotificationService(repo repository.NotificationRepository, profileRepo repository.ProfileRepository, config *config.Config) NotificationService {
	smtp := config.SMTPConfig
	mailer := utils.CreateMailer(smtp.Host, smtp.Port, smtp.Sender, smtp.Password)

	return &NotificationServiceImpl{
		repo:        repo,
		profileRepo: profileRepo,
		config:      config,
		mailer:      mailer,
		sendEmail:   mailer.Send,
	}
}

// orderStatusMessage maps a delivery status to the notification shown to the user.
func orderStatusMessage(orderTitle string, status domain.OrderStatus) (title string, message string, kind domain.NotificationType) {
	switch status {
	case domain.OrderStatusConfirmed:
		return "Order Confirmed", fmt.Sprintf("Your order \"%s\" has been confirmed and paid.", orderTitle), domain.NotificationTypeSuccess
	case domain.OrderStatusInTransit:
		return "Order In Transit", fmt.Sprintf("Your order \"%s\" is on its way.", orderTitle), domain.NotificationTypeInfo
	case domain.OrderStatusDelivered:
		return "Order Delivered", fmt.Sprintf("Your order \"%s\" has been delivered.", orderTitle), domain.NotificationTypeSuccess
	case domain.OrderStatusCancelled:
		return "Order Cancelled", fmt.Sprintf("Your order \"%s\" has been cancelled.", orderTitle), domain.NotificationTypeError
	default:
		return "Order Update", fmt.Sprintf("Your order \"%s\" has been updated.", orderTitle), domain.NotificationTypeInfo
	}
}

func (s *NotificationServiceImpl) EmitOrderStatus(ctx context.Context, userID int64, orderID string, orderTitle string, status domain.OrderStatus) (err error) {
	title, message, kind := orderStatusMessage(orderTitle, status)

	relatedOrderID := orderID
	_, err = s.repo.AddNotification(ctx, domain.Notification{
		UserID:         userID,
		Title:          title,
		Message:        message,
		Type:           kind,
		RelatedOrderID: &relatedOrderID,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "EmitOrderStatus").Int64("user_id", userID).Str("order_id", orderID).Msg("")
		return err
	}

	s.emailCopy(ctx, userID, title, message)

	return nil
}

// emailCopy mails the notification when SMTP is configured. Failures are logged only.
func (s *NotificationServiceImpl) emailCopy(ctx context.Context, userID int64, title string, message string) {
	if s.config.SMTPConfig.Host == "" {
		return
	}

	profile, err := s.profileRepo.GetProfileByID(ctx, userID)
	if err != nil || profile.Email == "" {
		return
	}

	mail := s.mailer.Compose(profile.Email, "ADAZE: "+title, message)

	if err := s.sendEmail(mail); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "emailCopy").Int64("user_id", userID).Msg("")
	}
}

func (s *NotificationServiceImpl) GetNotifications(ctx context.Context, userID int64, filter pkgdto.Filter) (resp pkgdto.PaginationResponse, err error) {
	filter.Normalize()

	data, err := s.repo.GetNotificationsByUser(ctx, userID, filter)
	if err != nil {
		return
	}

	count, err := s.repo.CountNotificationsByUser(ctx, userID)
	if err != nil {
		return
	}

	if data == nil {
		data = []domain.Notification{}
	}

	resp.Records = data
	resp.Metadata = pkgdto.PaginationMetadata{
		TotalCount: count,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}

	return
}

func (s *NotificationServiceImpl) CountUnread(ctx context.Context, userID int64) (count int64, err error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id int64, userID int64) (err error) {
	updated, err := s.repo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return
	}

	if !updated {
		return errs.ErrNotFound
	}

	return nil
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID int64) (err error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}
