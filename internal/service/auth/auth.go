// Package auth implements staff authentication: email+password login with
// argon2id hashes, one-time login codes delivered by email (and SMS when a
// phone is on file), PASETO v4 tokens and redis-backed sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/config"
	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
	"github.com/oveliahealth/ovelia_backend/pkg/email"
	pasetotoken "github.com/oveliahealth/ovelia_backend/pkg/paseto"
	"github.com/oveliahealth/ovelia_backend/pkg/sms"
	"github.com/oveliahealth/ovelia_backend/pkg/util/otp"
	"github.com/oveliahealth/ovelia_backend/pkg/util/password"
	"github.com/oveliahealth/ovelia_backend/pkg/util/phone"
)

const (
	maxOTPAttempts   = 5
	maxLoginAttempts = 5
	loginLockTTL     = 15 * time.Minute
)

func redisKeyOTP(email string) string         { return "otp:" + email }
func redisKeyOTPAttempts(email string) string { return "otp:attempts:" + email }
func redisKeyLoginFails(email string) string  { return "login:attempts:" + email }
func redisKeySession(sessionID string) string { return "session:" + sessionID }

var reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string // optional; any CA format
}

type LoginRequest struct {
	Email    string
	Password string
}

type VerifyOTPRequest struct {
	Email string
	Code  string
}

// AuthTokens is what a successful login hands to the transport layer.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime, whole seconds
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service is the authentication surface the HTTP layer consumes.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req LoginRequest) (*AuthTokens, error)

	// RequestOTP emails a one-time login code to the account; when the user
	// has a phone on file and SMS is enabled the code is also texted.
	RequestOTP(ctx context.Context, emailAddr string) error
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthTokens, error)

	RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type authService struct {
	db         *gorm.DB
	rdb        *redis.Client
	email      *email.Client
	sms        *sms.Client
	paseto     *pasetotoken.Manager
	auth       authorize.IAuthorization
	cfg        *config.Config
	hashParams *password.Params
}

func New(
	db *gorm.DB,
	rdb *redis.Client,
	emailCli *email.Client,
	smsCli *sms.Client,
	paseto *pasetotoken.Manager,
	auth authorize.IAuthorization,
	cfg *config.Config,
) Service {
	return &authService{
		db:         db,
		rdb:        rdb,
		email:      emailCli,
		sms:        smsCli,
		paseto:     paseto,
		auth:       auth,
		cfg:        cfg,
		hashParams: password.ParamsFromConfig(cfg.Password),
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if !reEmail.MatchString(addr) {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	var phoneE164 string
	if p := strings.TrimSpace(req.Phone); p != "" {
		normalized, err := phone.NormalizeCA(p)
		if err != nil {
			return nil, ErrInvalidPhone
		}
		phoneE164 = normalized
	}

	passHash, err := password.HashWithParams(req.Password, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        addr,
		Phone:        phoneE164,
		PasswordHash: passHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Status:       model.UserStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := authorize.AssignUserSelfRole(ctx, s.auth, u.ID.String()); err != nil {
		slog.Warn("assign self role", "user_id", u.ID, "error", err)
	}

	return u, nil
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthTokens, error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.findByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.Status == model.UserStatusSuspended {
		return nil, ErrAccountSuspended
	}

	fails, _ := s.rdb.Get(ctx, redisKeyLoginFails(addr)).Int()
	if fails >= maxLoginAttempts {
		return nil, ErrAccountLocked
	}

	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := password.Verify(u.PasswordHash, req.Password); err != nil {
		s.recordFailedLogin(ctx, addr)
		return nil, ErrInvalidCredentials
	}

	s.rdb.Del(ctx, redisKeyLoginFails(addr))

	// Hash params changed since this hash was stored; upgrade it while we
	// still hold the clear password.
	if password.NeedsRehash(u.PasswordHash, s.hashParams) {
		if newHash, err := password.HashWithParams(req.Password, s.hashParams); err == nil {
			if err := s.db.WithContext(ctx).Model(u).Update("password_hash", newHash).Error; err != nil {
				slog.Warn("upgrade password hash", "user_id", u.ID, "error", err)
			}
		}
	}

	return s.createSession(ctx, u)
}

// ---------------------------------------------------------------------------
// OTP login
// ---------------------------------------------------------------------------

func (s *authService) RequestOTP(ctx context.Context, emailAddr string) error {
	addr := strings.ToLower(strings.TrimSpace(emailAddr))

	u, err := s.findByEmail(ctx, addr)
	if err != nil {
		return err
	}
	if u.Status == model.UserStatusSuspended {
		return ErrAccountSuspended
	}

	code, err := otp.Generate(otp.LengthFromConfig(s.cfg.OTP))
	if err != nil {
		return fmt.Errorf("generate login code: %w", err)
	}

	ttl := time.Duration(s.cfg.Authentication.OTPTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	if err := s.rdb.Set(ctx, redisKeyOTP(addr), otp.Hash(code), ttl).Err(); err != nil {
		return fmt.Errorf("store login code: %w", err)
	}
	s.rdb.Set(ctx, redisKeyOTPAttempts(addr), "0", ttl+5*time.Minute)

	msg := email.BuildOTPEmail(email.OTPEmailData{
		Email:      addr,
		Code:       code,
		TTLMinutes: int(ttl.Minutes()),
	})
	emailErr := s.email.Send(ctx, msg)
	if emailErr != nil {
		slog.Warn("send login code email", "user_id", u.ID, "error", emailErr)
	}

	smsSent := false
	if u.Phone != "" && s.sms.IsEnabled() {
		if err := s.sms.SendOTP(ctx, u.Phone, code); err != nil {
			slog.Warn("send login code SMS", "user_id", u.ID, "error", err)
		} else {
			smsSent = true
		}
	}

	if emailErr != nil && !smsSent {
		return fmt.Errorf("%w: %v", ErrCodeDelivery, emailErr)
	}
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthTokens, error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)

	otpHash, err := s.rdb.Get(ctx, redisKeyOTP(addr)).Result()
	if err == redis.Nil {
		return nil, ErrOTPExpired
	}
	if err != nil {
		return nil, fmt.Errorf("redis get otp: %w", err)
	}

	attempts, _ := s.rdb.Get(ctx, redisKeyOTPAttempts(addr)).Int()
	if attempts >= maxOTPAttempts {
		return nil, ErrOTPMaxAttempts
	}

	if err := otp.Verify(otpHash, code); err != nil {
		s.rdb.Incr(ctx, redisKeyOTPAttempts(addr))
		return nil, ErrOTPInvalid
	}

	s.rdb.Del(ctx, redisKeyOTP(addr), redisKeyOTPAttempts(addr))

	u, err := s.findByEmail(ctx, addr)
	if err != nil {
		return nil, err
	}
	if u.Status == model.UserStatusSuspended {
		return nil, ErrAccountSuspended
	}

	return s.createSession(ctx, u)
}

// ---------------------------------------------------------------------------
// Session lifecycle
// ---------------------------------------------------------------------------

func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.paseto.Verify(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Type != pasetotoken.TokenTypeRefresh || claims.SessionID == nil {
		return nil, ErrInvalidToken
	}

	sessionKey := redisKeySession(claims.SessionID.String())
	switch err := s.rdb.Get(ctx, sessionKey).Err(); {
	case errors.Is(err, redis.Nil):
		return nil, ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	// Sliding session: each refresh extends the window.
	s.rdb.Expire(ctx, sessionKey, s.refreshTTL())

	accessToken, err := s.paseto.IssueAccess(claims.UserID, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken, // unchanged until logout
		ExpiresIn:    int64(s.accessTTL().Seconds()),
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	n, err := s.rdb.Del(ctx, redisKeySession(sessionID.String())).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		slog.Debug("logout on expired session", "session_id", sessionID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *authService) findByEmail(ctx context.Context, addr string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("email = ?", addr).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *authService) createSession(ctx context.Context, u *model.User) (*AuthTokens, error) {
	sessionID := uuid.Must(uuid.NewV7())

	// No session is stored until both tokens exist.
	access, err := s.paseto.IssueAccess(u.ID, &sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.paseto.IssueRefresh(u.ID, &sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.rdb.Set(ctx, redisKeySession(sessionID.String()), u.ID.String(), s.refreshTTL()).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	now := time.Now()
	_ = s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", u.ID).
		Update("last_login_at", now).Error

	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL().Seconds()),
	}, nil
}

func (s *authService) recordFailedLogin(ctx context.Context, addr string) {
	key := redisKeyLoginFails(addr)
	if n, err := s.rdb.Incr(ctx, key).Result(); err == nil && n == 1 {
		s.rdb.Expire(ctx, key, loginLockTTL)
	}
}

func (s *authService) accessTTL() time.Duration {
	d := time.Duration(s.cfg.Authentication.Paseto.AccessTTLMinutes) * time.Minute
	if d <= 0 {
		d = 15 * time.Minute
	}
	return d
}

func (s *authService) refreshTTL() time.Duration {
	d := time.Duration(s.cfg.Authentication.Paseto.RefreshTTLDays) * 24 * time.Hour
	if d <= 0 {
		d = 30 * 24 * time.Hour
	}
	return d
}
