package admins

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/auth"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotConfigured        = errors.New("admin auth not configured")
	ErrUsersNotConfigured   = errors.New("admin users not configured")
	ErrRegistrationDisabled = errors.New("admin registration not configured")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrInvalidSetupKey      = errors.New("invalid setup key")
)

// Credentials is the single admin account configured through the environment.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
	SetupKey     string
}

func (c Credentials) configured() bool {
	return c.Username != "" && (c.Password != "" || c.PasswordHash != "")
}

type Tokens struct {
	Access     string
	Refresh    string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Service struct {
	users    Repository
	manager  *auth.Manager
	sessions *auth.Sessions
	creds    Credentials
	loc      *time.Location
	now      func() time.Time
}

// NewService accepts a nil users repository when Mongo is not configured and
// a nil manager when no JWT secret is set.
func NewService(users Repository, manager *auth.Manager, sessions *auth.Sessions, creds Credentials, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		users:    users,
		manager:  manager,
		sessions: sessions,
		creds:    creds,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (Tokens, error) {
	if s.manager == nil || (!s.creds.configured() && s.users == nil) {
		return Tokens{}, ErrNotConfigured
	}
	username, _ = normalizeIdentity(username, "")

	if s.creds.configured() && username == s.creds.Username {
		if auth.CheckStatic(s.creds.Password, s.creds.PasswordHash, password) {
			return s.issue(ctx, username)
		}
		return Tokens{}, ErrInvalidCredentials
	}

	if s.users == nil {
		return Tokens{}, ErrInvalidCredentials
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Tokens{}, ErrInvalidCredentials
		}
		return Tokens{}, err
	}
	if auth.ComparePassword(user.PasswordHash, password) != nil {
		return Tokens{}, ErrInvalidCredentials
	}
	return s.issue(ctx, user.Username)
}

// Refresh rotates a refresh token: the presented token is consumed and can
// never be used again, even if the new pair is lost.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if s.manager == nil {
		return Tokens{}, ErrNotConfigured
	}
	claims, err := s.manager.ParseRefresh(refreshToken)
	if err != nil || claims.Role != auth.RoleAdmin || claims.ID == "" {
		return Tokens{}, ErrInvalidRefreshToken
	}
	ok, err := s.sessions.Consume(ctx, claims.ID, claims.Subject)
	if err != nil {
		return Tokens{}, err
	}
	if !ok {
		return Tokens{}, ErrInvalidRefreshToken
	}
	return s.issue(ctx, claims.Subject)
}

// Logout revokes the refresh session if the token is readable. Unreadable
// tokens are ignored so logout always succeeds.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if s.manager == nil || refreshToken == "" {
		return nil
	}
	claims, err := s.manager.ParseRefresh(refreshToken)
	if err != nil || claims.ID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.ID)
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, Tokens, error) {
	if s.users == nil {
		return User{}, Tokens{}, ErrUsersNotConfigured
	}
	if s.creds.SetupKey == "" {
		return User{}, Tokens{}, ErrRegistrationDisabled
	}
	if s.manager == nil {
		return User{}, Tokens{}, ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(req.SetupKey), []byte(s.creds.SetupKey)) != 1 {
		return User{}, Tokens{}, ErrInvalidSetupKey
	}

	user, err := s.create(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return User{}, Tokens{}, err
	}
	tokens, err := s.issue(ctx, user.Username)
	if err != nil {
		return User{}, Tokens{}, err
	}
	return user, tokens, nil
}

func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (User, error) {
	if s.users == nil {
		return User{}, ErrUsersNotConfigured
	}
	return s.create(ctx, req.Username, req.Email, req.Password)
}

func (s *Service) UpdatePassword(ctx context.Context, id, password string) error {
	if s.users == nil {
		return ErrUsersNotConfigured
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash, s.now().In(s.loc))
}

func (s *Service) create(ctx context.Context, username, email, password string) (User, error) {
	username, email = normalizeIdentity(username, email)
	if s.creds.configured() && username == s.creds.Username {
		return User{}, ErrDuplicate
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	now := s.now().In(s.loc)
	user := User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) issue(ctx context.Context, subject string) (Tokens, error) {
	access, err := s.manager.NewAccessToken(subject, auth.RoleAdmin)
	if err != nil {
		return Tokens{}, err
	}
	refresh, jti, err := s.manager.NewRefreshToken(subject, auth.RoleAdmin)
	if err != nil {
		return Tokens{}, err
	}
	if err := s.sessions.Save(ctx, jti, subject, s.manager.RefreshTTL); err != nil {
		return Tokens{}, err
	}
	return Tokens{
		Access:     access,
		Refresh:    refresh,
		AccessTTL:  s.manager.AccessTTL,
		RefreshTTL: s.manager.RefreshTTL,
	}, nil
}
