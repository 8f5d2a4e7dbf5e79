package service

import (
	"context"
	"errors"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/internal/repository"
	"fincra-wisdom/pkg/hash"
	"fincra-wisdom/pkg/log"
	"fincra-wisdom/pkg/token"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var validate = validator.New()

// AccountOptions controls registration and role assignment.
type AccountOptions struct {
	AllowedDomains   []string
	AdminEmails      []string
	SuperAdminEmails []string
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Content       []model.User `json:"content"`
	TotalElements int64        `json:"totalElements"`
	TotalPages    int          `json:"totalPages"`
	Number        int          `json:"number"`
	Size          int          `json:"size"`
}

// UserService handles accounts and sessions.
type UserService interface {
	Register(ctx context.Context, email, name, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	GetProfile(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, page, size int) (*UserListResponse, error)
	SetBlocked(ctx context.Context, userID uint, blocked bool, actor *model.User) (*model.User, error)
}

type userService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	jwtManager *token.JWTManager
	opts       AccountOptions
}

func NewUserService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, jwtManager *token.JWTManager, opts AccountOptions) UserService {
	return &userService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
		opts:       opts,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// roleFor derives the role an email is entitled to from the configured lists.
func (s *userService) roleFor(email string) string {
	for _, e := range s.opts.SuperAdminEmails {
		if e == email {
			return model.RoleSuperAdmin
		}
	}
	for _, e := range s.opts.AdminEmails {
		if e == email {
			return model.RoleAdmin
		}
	}
	return model.RoleUser
}

func (s *userService) domainAllowed(email string) bool {
	if len(s.opts.AllowedDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range s.opts.AllowedDomains {
		if domain == d {
			return true
		}
	}
	return false
}

func (s *userService) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, InvalidInput("a valid email is required")
	}
	if !s.domainAllowed(email) {
		return nil, InvalidInput("registration is limited to company email addresses")
	}
	if len(password) < minPasswordLength {
		return nil, InvalidInput("password must be at least 8 characters")
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, Conflict("an account with this email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Internal("failed to check existing account", err)
	}

	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, Internal("failed to hash password", err)
	}

	user := &model.User{
		Email:    email,
		Name:     strings.TrimSpace(name),
		Password: hashedPassword,
		Role:     s.roleFor(email),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if isDuplicateKey(err) {
			return nil, Conflict("an account with this email already exists")
		}
		return nil, Internal("failed to create account", err)
	}
	log.Infow("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Unauthorized("invalid credentials")
		}
		return nil, Internal("failed to load account", err)
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, Unauthorized("invalid credentials")
	}
	if user.IsBlocked {
		return nil, Forbidden("account is blocked")
	}

	// Admin lists come from configuration, so a newly listed admin is promoted on login.
	if role := s.roleFor(email); role != model.RoleUser && role != user.Role {
		user.Role = role
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, Internal("failed to update role", err)
		}
	}
	return s.issue(user)
}

func (s *userService) issue(user *model.User) (*TokenPair, error) {
	access, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, Internal("failed to issue token", err)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, Internal("failed to issue token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtManager.VerifyToken(refreshToken)
	if err != nil || !claims.Refresh {
		return nil, Unauthorized("invalid refresh token")
	}
	if revoked, err := s.tokenRepo.IsBlacklisted(ctx, refreshToken); err != nil {
		return nil, Internal("failed to check token", err)
	} else if revoked {
		return nil, Unauthorized("invalid refresh token")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Unauthorized("invalid refresh token")
		}
		return nil, Internal("failed to load account", err)
	}
	if user.IsBlocked {
		return nil, Forbidden("account is blocked")
	}

	// Refresh tokens are single use.
	if err := s.tokenRepo.Blacklist(ctx, refreshToken, time.Until(claims.ExpiresAt.Time)); err != nil {
		return nil, Internal("failed to rotate token", err)
	}
	return s.issue(user)
}

// Logout blacklists the access token until it expires.
func (s *userService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtManager.VerifyToken(accessToken)
	if err != nil {
		return Unauthorized("invalid token")
	}
	if err := s.tokenRepo.Blacklist(ctx, accessToken, time.Until(claims.ExpiresAt.Time)); err != nil {
		return Internal("failed to revoke token", err)
	}
	return nil
}

func (s *userService) GetProfile(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, lookupError("user", err)
	}
	return user, nil
}

// ListUsers returns a page of users. page is 1-based.
func (s *userService) ListUsers(ctx context.Context, page, size int) (*UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	users, total, err := s.userRepo.FindWithPagination(ctx, (page-1)*size, size)
	if err != nil {
		return nil, Internal("failed to list users", err)
	}
	totalPages := int(total) / size
	if int(total)%size != 0 {
		totalPages++
	}
	return &UserListResponse{
		Content:       users,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        page,
		Size:          size,
	}, nil
}

func (s *userService) SetBlocked(ctx context.Context, userID uint, blocked bool, actor *model.User) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("admin access required")
	}
	if actor.ID == userID {
		return nil, InvalidInput("you cannot block your own account")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError("user", err)
	}
	if user.Role == model.RoleSuperAdmin && actor.Role != model.RoleSuperAdmin {
		return nil, Forbidden("only a superadmin can block a superadmin")
	}
	user.IsBlocked = blocked
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, Internal("failed to update user", err)
	}
	log.Infow("user block state changed", "user_id", user.ID, "blocked", blocked, "actor", actor.Email)
	return user, nil
}
