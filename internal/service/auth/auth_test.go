package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	casbin "github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oveliahealth/ovelia_backend/config"
	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
	"github.com/oveliahealth/ovelia_backend/pkg/email"
	pasetotoken "github.com/oveliahealth/ovelia_backend/pkg/paseto"
	"github.com/oveliahealth/ovelia_backend/pkg/sms"
	"github.com/oveliahealth/ovelia_backend/pkg/util/otp"
	"github.com/oveliahealth/ovelia_backend/pkg/util/password"
)

const casbinModel = `[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act, eft

[role_definition]
g = _, _, _
g2 = _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = (g(r.sub, p.sub, r.dom) || g2(r.sub, p.sub)) && (p.dom == "*" || p.dom == r.dom) && (p.obj == "*" || keyMatch2(r.obj, p.obj)) && (p.act == "*" || keyMatch(r.act, p.act))
`

func newTestAuthz(t *testing.T) authorize.IAuthorization {
	t.Helper()

	tmpDir := t.TempDir()
	modelPath := filepath.Join(tmpDir, "model.conf")
	if err := os.WriteFile(modelPath, []byte(casbinModel), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	policyPath := filepath.Join(tmpDir, "policy.csv")
	if err := os.WriteFile(policyPath, nil, 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	e, err := casbin.NewDistributedEnforcer(modelPath, fileadapter.NewAdapter(policyPath))
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	e.EnableAutoSave(false)

	authz, err := authorize.NewAuthorization(e, false)
	if err != nil {
		t.Fatalf("authorization: %v", err)
	}
	return authz
}

type testEnv struct {
	svc Service
	db  *gorm.DB
	mr  *miniredis.Miniredis
	rdb *redis.Client
	mgr *pasetotoken.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mgr, err := pasetotoken.New(pasetotoken.Config{
		Mode:       pasetotoken.ModeLocal,
		Issuer:     "ovelia-test",
		Audience:   "ovelia",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, pasetotoken.NewLocalKeys())
	if err != nil {
		t.Fatalf("paseto manager: %v", err)
	}

	emailCli, err := email.New(email.Config{Enabled: false})
	if err != nil {
		t.Fatalf("email client: %v", err)
	}
	smsCli, err := sms.NewFromConfig(config.SMSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("sms client: %v", err)
	}

	cfg := &config.Config{}
	cfg.Authentication.OTPTTLMinutes = 5
	cfg.Authentication.Paseto.AccessTTLMinutes = 15
	cfg.Authentication.Paseto.RefreshTTLDays = 1

	svc := New(db, rdb, emailCli, smsCli, mgr, newTestAuthz(t), cfg)
	return &testEnv{svc: svc, db: db, mr: mr, rdb: rdb, mgr: mgr}
}

func register(t *testing.T, env *testEnv, addr, pass string) *model.User {
	t.Helper()

	u, err := env.svc.Register(context.Background(), RegisterRequest{
		Email:     addr,
		Password:  pass,
		FirstName: "Marc",
		LastName:  "Bélanger",
	})
	if err != nil {
		t.Fatalf("register %s: %v", addr, err)
	}
	return u
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.svc.Register(ctx, RegisterRequest{
		Email:     "Marc@Clinique.QC.CA",
		Password:  "trois-castors-8",
		FirstName: " Marc ",
		LastName:  "Bélanger",
		Phone:     "514 555 0199",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if u.Email != "marc@clinique.qc.ca" {
		t.Errorf("email = %q, want lowercased", u.Email)
	}
	if u.Phone != "+15145550199" {
		t.Errorf("phone = %q, want E.164", u.Phone)
	}
	if u.FirstName != "Marc" {
		t.Errorf("first name = %q", u.FirstName)
	}
	if err := password.Verify(u.PasswordHash, "trois-castors-8"); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}

	if _, err := env.svc.Register(ctx, RegisterRequest{Email: "marc@clinique.qc.ca", Password: "autre-mot-de-passe"}); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("duplicate: err = %v, want ErrEmailAlreadyExists", err)
	}

	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"bad email", RegisterRequest{Email: "pas-un-courriel", Password: "assez-long-1"}, ErrInvalidEmail},
		{"short password", RegisterRequest{Email: "a@b.ca", Password: "court"}, ErrPasswordTooShort},
		{"bad phone", RegisterRequest{Email: "c@d.ca", Password: "assez-long-1", Phone: "123"}, ErrInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.Register(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoginIssuesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := register(t, env, "julie@clinique.qc.ca", "grand-heron-bleu-4")

	tokens, err := env.svc.Login(ctx, LoginRequest{Email: "Julie@Clinique.QC.CA", Password: "grand-heron-bleu-4"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("empty tokens")
	}
	if tokens.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d", tokens.ExpiresIn)
	}

	claims, err := env.mgr.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Type != pasetotoken.TokenTypeAccess || claims.UserID != u.ID || claims.SessionID == nil {
		t.Errorf("claims = %+v", claims)
	}
	if !env.mr.Exists("session:" + claims.SessionID.String()) {
		t.Error("session missing from redis")
	}

	var reloaded model.User
	if err := env.db.First(&reloaded, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.LastLoginAt == nil {
		t.Error("last_login_at not recorded")
	}
}

func TestLoginGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Login(ctx, LoginRequest{Email: "personne@nulle.part", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}

	u := register(t, env, "suspendu@clinique.qc.ca", "mot-de-passe-9")
	if err := env.db.Model(&model.User{}).Where("id = ?", u.ID).
		Update("status", model.UserStatusSuspended).Error; err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := env.svc.Login(ctx, LoginRequest{Email: "suspendu@clinique.qc.ca", Password: "mot-de-passe-9"}); !errors.Is(err, ErrAccountSuspended) {
		t.Errorf("suspended: err = %v, want ErrAccountSuspended", err)
	}
}

func TestLoginLockout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	register(t, env, "marie@clinique.qc.ca", "bonne-reponse-7")

	for i := 0; i < maxLoginAttempts; i++ {
		if _, err := env.svc.Login(ctx, LoginRequest{Email: "marie@clinique.qc.ca", Password: "mauvaise"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v", i+1, err)
		}
	}

	// Even the right password is refused while locked.
	if _, err := env.svc.Login(ctx, LoginRequest{Email: "marie@clinique.qc.ca", Password: "bonne-reponse-7"}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locked: err = %v, want ErrAccountLocked", err)
	}

	env.mr.FastForward(loginLockTTL + time.Minute)

	if _, err := env.svc.Login(ctx, LoginRequest{Email: "marie@clinique.qc.ca", Password: "bonne-reponse-7"}); err != nil {
		t.Fatalf("after lock expiry: %v", err)
	}
}

func TestRequestOTPStoresCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	register(t, env, "otp@clinique.qc.ca", "mot-de-passe-3")

	// Email is disabled in tests and no phone is on file, so delivery fails,
	// but the hashed code must already be stored.
	err := env.svc.RequestOTP(ctx, "otp@clinique.qc.ca")
	if !errors.Is(err, ErrCodeDelivery) {
		t.Fatalf("err = %v, want ErrCodeDelivery", err)
	}
	if !env.mr.Exists("otp:otp@clinique.qc.ca") {
		t.Error("otp hash not stored")
	}
	if ttl := env.mr.TTL("otp:otp@clinique.qc.ca"); ttl != 5*time.Minute {
		t.Errorf("otp ttl = %v", ttl)
	}

	if err := env.svc.RequestOTP(ctx, "inconnu@clinique.qc.ca"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown: err = %v, want ErrUserNotFound", err)
	}
}

func plantOTP(t *testing.T, env *testEnv, addr, code string) {
	t.Helper()
	ctx := context.Background()
	if err := env.rdb.Set(ctx, redisKeyOTP(addr), otp.Hash(code), 5*time.Minute).Err(); err != nil {
		t.Fatalf("plant otp: %v", err)
	}
	if err := env.rdb.Set(ctx, redisKeyOTPAttempts(addr), "0", 10*time.Minute).Err(); err != nil {
		t.Fatalf("plant attempts: %v", err)
	}
}

func TestVerifyOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := register(t, env, "code@clinique.qc.ca", "mot-de-passe-5")
	plantOTP(t, env, "code@clinique.qc.ca", "482913")

	if _, err := env.svc.VerifyOTP(ctx, VerifyOTPRequest{Email: "code@clinique.qc.ca", Code: "000000"}); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("wrong code: err = %v, want ErrOTPInvalid", err)
	}

	tokens, err := env.svc.VerifyOTP(ctx, VerifyOTPRequest{Email: "code@clinique.qc.ca", Code: "482913"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	claims, err := env.mgr.Verify(tokens.AccessToken)
	if err != nil || claims.UserID != u.ID {
		t.Fatalf("claims = %+v, err = %v", claims, err)
	}

	// The code is single-use.
	if env.mr.Exists(redisKeyOTP("code@clinique.qc.ca")) {
		t.Error("otp key not consumed")
	}
	if _, err := env.svc.VerifyOTP(ctx, VerifyOTPRequest{Email: "code@clinique.qc.ca", Code: "482913"}); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("reuse: err = %v, want ErrOTPExpired", err)
	}
}

func TestVerifyOTPMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	register(t, env, "brute@clinique.qc.ca", "mot-de-passe-6")
	plantOTP(t, env, "brute@clinique.qc.ca", "482913")

	for i := 0; i < maxOTPAttempts; i++ {
		if _, err := env.svc.VerifyOTP(ctx, VerifyOTPRequest{Email: "brute@clinique.qc.ca", Code: "999999"}); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("attempt %d: err = %v", i+1, err)
		}
	}
	if _, err := env.svc.VerifyOTP(ctx, VerifyOTPRequest{Email: "brute@clinique.qc.ca", Code: "482913"}); !errors.Is(err, ErrOTPMaxAttempts) {
		t.Errorf("err = %v, want ErrOTPMaxAttempts", err)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	register(t, env, "session@clinique.qc.ca", "mot-de-passe-8")

	tokens, err := env.svc.Login(ctx, LoginRequest{Email: "session@clinique.qc.ca", Password: "mot-de-passe-8"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := env.svc.RefreshTokens(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("no new access token")
	}
	if refreshed.RefreshToken != tokens.RefreshToken {
		t.Error("refresh token should be unchanged")
	}

	// An access token is not a refresh token.
	if _, err := env.svc.RefreshTokens(ctx, tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access as refresh: err = %v, want ErrInvalidToken", err)
	}
	if _, err := env.svc.RefreshTokens(ctx, "n'importe quoi"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: err = %v, want ErrInvalidToken", err)
	}

	claims, err := env.mgr.Verify(tokens.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if err := env.svc.Logout(ctx, *claims.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := env.svc.RefreshTokens(ctx, tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("after logout: err = %v, want ErrSessionNotFound", err)
	}
	if err := env.svc.Logout(ctx, *claims.SessionID); err != nil {
		t.Errorf("second logout: %v", err)
	}
}
