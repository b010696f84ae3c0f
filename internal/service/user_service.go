package service

import (
	"context"
	"strings"
	"time"

	"github.com/adaze/marketplace-api/config"
	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/adaze/marketplace-api/internal/repository"
	pkgdto "github.com/adaze/marketplace-api/pkg/dto"
	"github.com/adaze/marketplace-api/pkg/errs"
	"github.com/adaze/marketplace-api/pkg/utils"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const loginHistoryLimit = 20

type UserServiceImpl struct {
	repo     repository.ProfileRepository
	cartRepo repository.CartRepository
	config   *config.Config
}

func CreateUserService(repo repository.ProfileRepository, cartRepo repository.CartRepository, config *config.Config) UserService {
	return &UserServiceImpl{repo: repo, cartRepo: cartRepo, config: config}
}

func toUserResponse(p domain.Profile) dto.UserResponse {
	return dto.UserResponse{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		FullName:   p.FullName,
		Email:      p.Email,
		Phone:      p.Phone,
		Role:       string(p.Role),
		Suspended:  p.Suspended,
		CreatedAt:  p.CreatedAt,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, req dto.UserRequest) (resp dto.UserResponse, err error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		return resp, errs.ErrClient
	}

	role := domain.RoleBuyer
	if req.Role != "" {
		role = domain.Role(req.Role)
	}

	if !role.Valid() || role == domain.RoleAdmin {
		return resp, errs.ErrClient
	}

	profile, err := s.repo.GetProfileByEmail(ctx, req.Email)
	if err != nil {
		return
	}

	if profile.ID != 0 {
		return resp, errs.ErrEmailAlreadyUsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "Register").Msg("")
		return resp, errs.ErrInternalServer
	}

	profile = domain.Profile{
		ExternalID:     ulid.Make().String(),
		FullName:       req.FullName,
		Email:          req.Email,
		HashedPassword: string(hash),
		Role:           role,
	}

	if req.Phone != "" {
		phone, err := utils.NormalizePhoneNumber(req.Phone)
		if err != nil {
			return resp, errs.ErrClient
		}
		profile.Phone = &phone
	}

	profile.ID, err = s.repo.AddProfile(ctx, profile)
	if err != nil {
		return
	}
	profile.CreatedAt = time.Now()

	return toUserResponse(profile), nil
}

// authenticate checks the credentials of a profile that has not been deleted.
func (s *UserServiceImpl) authenticate(ctx context.Context, email string, password string) (profile domain.Profile, err error) {
	profile, err = s.repo.GetProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return
	}

	if profile.ID == 0 {
		return profile, errs.ErrAccountNotFound
	}

	err = bcrypt.CompareHashAndPassword([]byte(profile.HashedPassword), []byte(password))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "authenticate").Msg("")
		return profile, errs.ErrInvalidCredentialsEmail
	}

	return profile, nil
}

func (s *UserServiceImpl) issueToken(ctx context.Context, profile domain.Profile, req dto.LoginRequest) (resp dto.LoginResponse, err error) {
	token, err := utils.CreateJWTToken(profile.ID, string(profile.Role), profile.ExternalID, s.config.JWTSecret)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "issueToken").Msg("")
		return resp, errs.ErrInternalServer
	}

	err = s.repo.AddLoginHistory(ctx, domain.LoginHistory{
		ProfileID: profile.ID,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "issueToken").Msg("login history not recorded")
	}

	resp.Token = token
	resp.UserID = profile.ID
	resp.Role = string(profile.Role)

	return resp, nil
}

func (s *UserServiceImpl) Login(ctx context.Context, req dto.LoginRequest) (resp dto.LoginResponse, err error) {
	profile, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return
	}

	if profile.Suspended {
		return resp, errs.ErrAccountSuspended
	}

	return s.issueToken(ctx, profile, req)
}

// Logout ends the client session. Tokens are stateless, so only the cart is dropped.
func (s *UserServiceImpl) Logout(ctx context.Context, userID int64) (err error) {
	return s.cartRepo.ClearCart(ctx, userID)
}

func (s *UserServiceImpl) activeProfile(ctx context.Context, userID int64) (profile domain.Profile, err error) {
	profile, err = s.repo.GetProfileByID(ctx, userID)
	if err != nil {
		return
	}

	if profile.ID == 0 || profile.DeletedAt != nil {
		return profile, errs.ErrAccountNotFound
	}

	return profile, nil
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, userID int64) (resp dto.UserResponse, err error) {
	profile, err := s.activeProfile(ctx, userID)
	if err != nil {
		return
	}

	return toUserResponse(profile), nil
}

func (s *UserServiceImpl) Deactivate(ctx context.Context, userID int64) (err error) {
	if _, err = s.activeProfile(ctx, userID); err != nil {
		return
	}

	return s.repo.SetSuspended(ctx, userID, true)
}

// Reactivate lifts a suspension after checking the account credentials.
func (s *UserServiceImpl) Reactivate(ctx context.Context, req dto.LoginRequest) (resp dto.LoginResponse, err error) {
	profile, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return
	}

	if profile.Suspended {
		if err = s.repo.SetSuspended(ctx, profile.ID, false); err != nil {
			return
		}
		profile.Suspended = false
	}

	return s.issueToken(ctx, profile, req)
}

func (s *UserServiceImpl) DeleteAccount(ctx context.Context, userID int64) (err error) {
	if _, err = s.activeProfile(ctx, userID); err != nil {
		return
	}

	if err = s.repo.SoftDeleteProfile(ctx, userID); err != nil {
		return
	}

	if err := s.cartRepo.ClearCart(ctx, userID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "DeleteAccount").Msg("")
	}

	return nil
}

func (s *UserServiceImpl) UpdateRole(ctx context.Context, userID int64, req dto.RoleUpdateRequest) (err error) {
	role := domain.Role(req.Role)
	if !role.Valid() {
		return errs.ErrClient
	}

	updated, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return
	}

	if !updated {
		return errs.ErrAccountNotFound
	}

	return nil
}

func (s *UserServiceImpl) GetUsers(ctx context.Context, filter pkgdto.Filter) (resp pkgdto.PaginationResponse, err error) {
	filter.Normalize()

	data, err := s.repo.GetProfiles(ctx, filter)
	if err != nil {
		return
	}

	count, err := s.repo.CountProfiles(ctx, filter)
	if err != nil {
		return
	}

	records := make([]dto.UserResponse, 0, len(data))
	for _, profile := range data {
		records = append(records, toUserResponse(profile))
	}

	resp.Records = records
	resp.Metadata = pkgdto.PaginationMetadata{
		TotalCount: count,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}

	return
}

func (s *UserServiceImpl) GetLoginHistories(ctx context.Context, userID int64) (resp []domain.LoginHistory, err error) {
	resp, err = s.repo.GetLoginHistories(ctx, userID, loginHistoryLimit)
	if err != nil {
		return
	}

	if resp == nil {
		resp = []domain.LoginHistory{}
	}

	return
}
