package repository

import (
	"context"

	"github.com/adaze/marketplace-api/internal/domain"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type NotificationRepositoryImpl struct {
	db *sqlx.DB
}

func CreateNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) AddNotification(ctx context.Context, data domain.Notification) (id int64, err error) {
	nstmt, err := r.db.PrepareNamedContext(ctx, "INSERT INTO notifications(user_id, title, message, type, read, related_order_id, created_at) VALUES (:user_id, :title, :message, :type, :read, :related_order_id, :created_at) RETURNING id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddNotification").Msg("")
		return 0, errs.ErrInternalServer
	}
	defer nstmt.Close()

	err = nstmt.GetContext(ctx, &id, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddNotification").Msg("")
		return 0, errs.ErrInternalServer
	}

	return
}

func (r *NotificationRepositoryImpl) GetNotificationsByUser(ctx context.Context, userID int64, filter pkgdto.Filter) (data []domain.Notification, err error) {
	err = r.db.SelectContext(ctx, &data, "SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3", userID, filter.Limit, filter.Offset())
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetNotificationsByUser").Msg("")
		return nil, errs.ErrInternalServer
	}

	return
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, userID int64) (count int64, err error) {
	err = r.db.GetContext(ctx, &count, "SELECT COUNT(id) FROM notifications WHERE user_id = $1 AND read = FALSE", userID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CountUnread").Msg("")
		return 0, errs.ErrInternalServer
	}

	return
}

func (r *NotificationRepositoryImpl) CountNotificationsByUser(ctx context.Context, userID int64) (count int64, err error) {
	err = r.db.GetContext(ctx, &count, "SELECT COUNT(id) FROM notifications WHERE user_id = $1", userID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CountNotificationsByUser").Msg("")
		return 0, errs.ErrInternalServer
	}

	return
}

func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, id int64, userID int64) (updated bool, err error) {
	res, err := r.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "MarkAsRead").Msg("")
		return false, errs.ErrInternalServer
	}

	return rowsAffected(ctx, res, "MarkAsRead")
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID int64) (err error) {
	_, err = r.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE", userID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "MarkAllAsRead").Msg("")
		return errs.ErrInternalServer
	}

	return nil
}
