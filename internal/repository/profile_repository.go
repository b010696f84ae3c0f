package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type ProfileRepositoryImpl struct {
	db *sqlx.DB
}

func CreateProfileRepository(db *sqlx.DB) ProfileRepository {
	return &ProfileRepositoryImpl{db: db}
}

func (r *ProfileRepositoryImpl) GetProfileByEmail(ctx context.Context, email string) (data domain.Profile, err error) {
	row := r.db.QueryRowxContext(ctx, "SELECT * FROM profiles WHERE email = $1 AND deleted_at IS NULL", email)
	err = row.StructScan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProfileByEmail").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

// GetProfileByID also returns soft-deleted profiles so callers can tell them apart.
func (r *ProfileRepositoryImpl) GetProfileByID(ctx context.Context, id int64) (data domain.Profile, err error) {
	row := r.db.QueryRowxContext(ctx, "SELECT * FROM profiles WHERE id = $1", id)
	err = row.StructScan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return data, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProfileByID").Msg("")
		return data, errs.ErrInternalServer
	}

	return
}

func (r *ProfileRepositoryImpl) AddProfile(ctx context.Context, data domain.Profile) (id int64, err error) {
	now := time.Now()
	data.CreatedAt = now
	data.UpdatedAt = now

	nstmt, err := r.db.PrepareNamedContext(ctx, "INSERT INTO profiles(external_id, full_name, email, phone, hashed_password, role, suspended, created_at, updated_at) VALUES (:external_id, :full_name, :email, :phone, :hashed_password, :role, :suspended, :created_at, :updated_at) RETURNING id")
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddProfile").Msg("")
		return 0, errs.ErrInternalServer
	}
	defer nstmt.Close()

	err = nstmt.GetContext(ctx, &id, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddProfile").Msg("")
		return 0, errs.ErrInternalServer
	}

	return
}

func (r *ProfileRepositoryImpl) SetSuspended(ctx context.Context, id int64, suspended bool) (err error) {
	_, err = r.db.ExecContext(ctx, "UPDATE profiles SET suspended = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL", id, suspended)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "SetSuspended").Msg("")
		return errs.ErrInternalServer
	}

	return nil
}

func (r *ProfileRepositoryImpl) SoftDeleteProfile(ctx context.Context, id int64) (err error) {
	_, err = r.db.ExecContext(ctx, "UPDATE profiles SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "SoftDeleteProfile").Msg("")
		return errs.ErrInternalServer
	}

	return nil
}

func (r *ProfileRepositoryImpl) UpdateRole(ctx context.Context, id int64, role domain.Role) (updated bool, err error) {
	res, err := r.db.ExecContext(ctx, "UPDATE profiles SET role = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL", id, role)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "UpdateRole").Msg("")
		return false, errs.ErrInternalServer
	}

	return rowsAffected(ctx, res, "UpdateRole")
}

func profileFilterQuery(base string, filter pkgdto.Filter) (string, map[string]interface{}) {
	query := base + " WHERE deleted_at IS NULL"
	args := make(map[string]interface{})

	if filter.Q != "" {
		query += " AND (full_name ILIKE :q OR email ILIKE :q)"
		args["q"] = "%" + filter.Q + "%"
	}

	if filter.Status != "" {
		query += " AND role = :role"
		args["role"] = filter.Status
	}

	return query, args
}

func (r *ProfileRepositoryImpl) GetProfiles(ctx context.Context, filter pkgdto.Filter) (data []domain.Profile, err error) {
	query, args := profileFilterQuery("SELECT * FROM profiles", filter)
	query += " ORDER BY id"

	if filter.Limit != 0 && filter.Page != 0 {
		query += " LIMIT :limit OFFSET :offset"
		args["limit"] = filter.Limit
		args["offset"] = filter.Offset()
	}

	nstmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProfiles").Msg("")
		return nil, errs.ErrInternalServer
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &data, args)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetProfiles").Msg("")
		return nil, errs.ErrInternalServer
	}

	return
}

func (r *ProfileRepositoryImpl) CountProfiles(ctx context.Context, filter pkgdto.Filter) (count int64, err error) {
	query, args := profileFilterQuery("SELECT COUNT(id) FROM profiles", filter)

	nstmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CountProfiles").Msg("")
		return 0, errs.ErrInternalServer
	}
	defer nstmt.Close()

	err = nstmt.GetContext(ctx, &count, args)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CountProfiles").Msg("")
		return 0, errs.ErrInternalServer
	}

	return
}

func (r *ProfileRepositoryImpl) AddLoginHistory(ctx context.Context, data domain.LoginHistory) (err error) {
	_, err = r.db.NamedExecContext(ctx, "INSERT INTO login_histories(profile_id, ip_address, user_agent, created_at) VALUES (:profile_id, :ip_address, :user_agent, :created_at)", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddLoginHistory").Msg("")
		return errs.ErrInternalServer
	}

	return nil
}

func (r *ProfileRepositoryImpl) GetLoginHistories(ctx context.Context, profileID int64, limit int) (data []domain.LoginHistory, err error) {
	err = r.db.SelectContext(ctx, &data, "SELECT * FROM login_histories WHERE profile_id = $1 ORDER BY created_at DESC LIMIT $2", profileID, limit)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetLoginHistories").Msg("")
		return nil, errs.ErrInternalServer
	}

	return
}
