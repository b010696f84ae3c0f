package repository

import (
	"context"
	"database/sql"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type CartRepositoryImpl struct {
	db *sqlx.DB
}

func CreateCartRepository(db *sqlx.DB) CartRepository {
	return &CartRepositoryImpl{db: db}
}

func (r *CartRepositoryImpl) GetCartItems(ctx context.Context, profileID int64) (data []domain.CartItem, err error) {
	err = r.db.SelectContext(ctx, &data, "SELECT * FROM cart_items WHERE profile_id = $1 ORDER BY created_at", profileID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetCartItems").Msg("")
		return nil, errs.ErrInternalServer
	}

	return
}

func (r *CartRepositoryImpl) GetCartItem(ctx context.Context, profileID int64, productID string) (data domain.CartItem, err error) {
	err = r.db.GetContext(ctx, &data, "SELECT * FROM cart_items WHERE profile_id = $1 AND product_id = $2", profileID, productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetCartItem").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

// UpsertCartItem stores the line with its absolute quantity.
func (r *CartRepositoryImpl) UpsertCartItem(ctx context.Context, data domain.CartItem) (err error) {
	_, err = r.db.NamedExecContext(ctx, `INSERT INTO cart_items(profile_id, product_id, trader_id, title, price, quantity, created_at, updated_at)
		VALUES (:profile_id, :product_id, :trader_id, :title, :price, :quantity, :created_at, :updated_at)
		ON CONFLICT (profile_id, product_id) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			quantity = EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at`, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "UpsertCartItem").Msg("")
		return errs.ErrInternalServer
	}

	return nil
}

func (r *CartRepositoryImpl) RemoveCartItem(ctx context.Context, profileID int64, productID string) (err error) {
	_, err = r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE profile_id = $1 AND product_id = $2", profileID, productID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "RemoveCartItem").Msg("")
		return errs.ErrInternalServer
	}

	return nil
}

func (r *CartRepositoryImpl) ClearCart(ctx context.Context, profileID int64) (err error) {
	_, err = r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE profile_id = $1", profileID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "ClearCart").Msg("")
		return errs.ErrInternalServer
	}

	return nil
}
