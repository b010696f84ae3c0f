package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adaze/marketplace-api/internal/domain"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type OrderRepositoryImpl struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func CreateOrderRepository(db *sqlx.DB) OrderRepository {
	return &OrderRepositoryImpl{
		db: db,
	}
}

func (r *OrderRepositoryImpl) conn() sqlx.ExtContext {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *OrderRepositoryImpl) AddOrder(ctx context.Context, data domain.Order) (err error) {
	_, err = sqlx.NamedExecContext(ctx, r.conn(), "INSERT INTO orders(id, buyer_id, trader_id, transporter_id, title, amount, status, payment_status, shipping_address, created_at, updated_at) VALUES (:id, :buyer_id, :trader_id, :transporter_id, :title, :amount, :status, :payment_status, :shipping_address, :created_at, :updated_at)", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddOrder").Msg("")
		return errs.ErrInternalServer
	}

	return nil
}

func (r *OrderRepositoryImpl) GetOrderByID(ctx context.Context, id string) (data domain.Order, err error) {
	err = sqlx.GetContext(ctx, r.conn(), &data, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetOrderByID").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

// userScope restricts a query to the orders a user takes part in given the role.
func userScope(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "TRUE"
	case domain.RoleTrader:
		return "trader_id = :user_id"
	case domain.RoleTransporter:
		return "transporter_id = :user_id"
	case domain.RoleWholesaler:
		return "(buyer_id = :user_id OR trader_id = :user_id)"
	default:
		return "buyer_id = :user_id"
	}
}

func orderFilterQuery(base string, userID int64, role domain.Role, filter pkgdto.Filter) (string, map[string]interface{}) {
	query := fmt.Sprintf("%s WHERE %s", base, userScope(role))
	args := map[string]interface{}{"user_id": userID}

	if filter.Status != "" {
		query += " AND status = :status"
		args["status"] = filter.Status
	}

	if filter.Q != "" {
		query += " AND title ILIKE :q"
		args["q"] = "%" + filter.Q + "%"
	}

	return query, args
}

func (r *OrderRepositoryImpl) GetOrdersByUser(ctx context.Context, userID int64, role domain.Role, filter pkgdto.Filter) (data []domain.Order, err error) {
	query, args := orderFilterQuery("SELECT * FROM orders", userID, role, filter)
	query += " ORDER BY created_at DESC"

	if filter.Limit != 0 && filter.Page != 0 {
		query += " LIMIT :limit OFFSET :offset"
		args["limit"] = filter.Limit
		args["offset"] = filter.Offset()
	}

	query, params, err := sqlx.Named(query, args)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetOrdersByUser").Msg("")
		return nil, errs.ErrInternalServer
	}

	err = sqlx.SelectContext(ctx, r.conn(), &data, r.conn().Rebind(query), params...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetOrdersByUser").Msg("")
		return nil, errs.ErrInternalServer
	}

	return
}

func (r *OrderRepositoryImpl) CountOrdersByUser(ctx context.Context, userID int64, role domain.Role, filter pkgdto.Filter) (count int64, err error) {
	query, args := orderFilterQuery("SELECT COUNT(id) FROM orders", userID, role, filter)

	query, params, err := sqlx.Named(query, args)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CountOrdersByUser").Msg("")
		return 0, errs.ErrInternalServer
	}

	err = sqlx.GetContext(ctx, r.conn(), &count, r.conn().Rebind(query), params...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CountOrdersByUser").Msg("")
		return 0, errs.ErrInternalServer
	}

	return
}

func (r *OrderRepositoryImpl) AssignTransporter(ctx context.Context, orderID string, transporterID int64) (updated bool, err error) {
	res, err := r.conn().ExecContext(ctx, "UPDATE orders SET transporter_id = $2, updated_at = now() WHERE id = $1 AND status IN ('pending', 'confirmed')", orderID, transporterID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AssignTransporter").Msg("")
		return false, errs.ErrInternalServer
	}

	return rowsAffected(ctx, res, "AssignTransporter")
}

// UpdateOrderStatus changes the delivery status only if it still equals from.
func (r *OrderRepositoryImpl) UpdateOrderStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (updated bool, err error) {
	res, err := r.conn().ExecContext(ctx, "UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2", orderID, from, to)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "UpdateOrderStatus").Msg("")
		return false, errs.ErrInternalServer
	}

	return rowsAffected(ctx, res, "UpdateOrderStatus")
}

func (r *OrderRepositoryImpl) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "HandleTrx").Msg("")
		return errs.ErrInternalServer
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	return fn(ctx, &OrderRepositoryImpl{db: r.db, tx: tx})
}
