package service_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/evep-health/evep/internal/entity"
	"github.com/evep-health/evep/internal/service"
	"github.com/evep-health/evep/pkg/config"
)

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		email string
		errFn require.ErrorAssertionFunc
	}{
		{"Valid email", "user@example.com", require.NoError},
		{"Valid email with plus tag", "user+tag@example.com", require.NoError},
		{"Valid email with subdomain", "user@mail.example.com", require.NoError},
		{"Invalid: no domain zone", "abc@mail", require.Error},
		{"Invalid: double @ symbol", "user@@example.com", require.Error},
		{"Invalid: domain starts with dot", "user@.com", require.Error},
		{"Invalid: two consecutive dots", "user..name@example.com", require.Error},
		{"Invalid: exceeds length limit", strings.Repeat("x", service.EmailMaxLen) + "@example.com", require.Error},
		{"Invalid: empty email", "", require.Error},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			err := service.ValidateEmail(test.email)
			test.errFn(t, err)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		errFn    require.ErrorAssertionFunc
	}{
		{"Valid password", "secret-pass", require.NoError},
		{"Valid at minimum length", strings.Repeat("x", service.PasswordMinLen), require.NoError},
		{"Valid at maximum length", strings.Repeat("x", service.PasswordMaxLen), require.NoError},
		{"Invalid: too short", "short", require.Error},
		{"Invalid: too long", strings.Repeat("x", service.PasswordMaxLen+1), require.Error},
		{"Invalid: empty", "", require.Error},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			err := service.ValidatePassword(test.password)
			test.errFn(t, err)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
		errFn    require.ErrorAssertionFunc
	}{
		{"Valid email without changes", "user@example.com", "user@example.com", require.NoError},
		{"Email with spaces at start/end", "  user@example.com  ", "user@example.com", require.NoError},
		{"Email with uppercase", "User@Example.COM", "user@example.com", require.NoError},
		{"Email with brackets", "[user@example.com]", "user@example.com", require.NoError},
		{"Email with angle brackets", "<user@example.com>", "user@example.com", require.NoError},
		{"Email with inner spaces", "user  @  example  .  com", "user@example.com", require.NoError},
		{"Invalid email after normalization", "invalid-email", "", require.Error},
		{"Empty email", "", "", require.Error},
		{"Only spaces", "   ", "", require.Error},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			result, err := service.NormalizeEmail(test.input)
			test.errFn(t, err)

			if err == nil {
				require.Equal(t, test.expected, result)
			}
		})
	}
}

type fakeUserRepo struct {
	byEmail map[string]entity.UserAccount
	byID    map[uuid.UUID]entity.UserAccount
}

func newFakeUserRepo(accounts ...entity.UserAccount) *fakeUserRepo {
	r := &fakeUserRepo{
		byEmail: map[string]entity.UserAccount{},
		byID:    map[uuid.UUID]entity.UserAccount{},
	}

	for _, a := range accounts {
		r.byEmail[a.Email] = a
		r.byID[a.ID] = a
	}

	return r
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (entity.UserAccount, error) {
	a, ok := r.byEmail[email]
	if !ok {
		return entity.UserAccount{}, entity.ErrNotFound
	}

	return a, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (entity.UserAccount, error) {
	a, ok := r.byID[id]
	if !ok {
		return entity.UserAccount{}, entity.ErrNotFound
	}

	return a, nil
}

type fakeTokenRepo struct {
	tokens map[string]uuid.UUID
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]uuid.UUID{}}
}

func (r *fakeTokenRepo) SaveRefreshToken(_ context.Context, userID uuid.UUID, token string, _ time.Time) error {
	r.tokens[token] = userID
	return nil
}

func (r *fakeTokenRepo) FindRefreshToken(_ context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return entity.ErrNotFound
	}

	return nil
}

func (r *fakeTokenRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *fakeTokenRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	for token, id := range r.tokens {
		if id == userID {
			delete(r.tokens, token)
		}
	}

	return nil
}

func (r *fakeTokenRepo) CleanExpired(_ context.Context) error { return nil }

type fakeSessionHashRepo struct {
	hashes map[uuid.UUID]string
}

func newFakeSessionHashRepo() *fakeSessionHashRepo {
	return &fakeSessionHashRepo{hashes: map[uuid.UUID]string{}}
}

func (r *fakeSessionHashRepo) Save(_ context.Context, userID uuid.UUID, hash string, _ time.Duration) error {
	r.hashes[userID] = hash
	return nil
}

func (r *fakeSessionHashRepo) Verify(_ context.Context, userID uuid.UUID, hash string) error {
	stored, ok := r.hashes[userID]
	if !ok {
		return entity.ErrNotFound
	}

	if stored != hash {
		return entity.ErrInvalidSessionHash
	}

	return nil
}

func (r *fakeSessionHashRepo) Delete(_ context.Context, userID uuid.UUID) error {
	delete(r.hashes, userID)
	return nil
}

type fakeNotifier struct {
	alerts int
}

func (n *fakeNotifier) SendSignInAlert(_ context.Context, _, _, _ string) {
	n.alerts++
}

func testKeyPair(t *testing.T) (string, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return base64.StdEncoding.EncodeToString(privPEM), base64.StdEncoding.EncodeToString(pubPEM)
}

type serviceFixture struct {
	svc      *service.Service
	users    *fakeUserRepo
	tokens   *fakeTokenRepo
	hashes   *fakeSessionHashRepo
	notifier *fakeNotifier
	account  entity.UserAccount
	password string
}

func newServiceFixture(t *testing.T, mutate func(*entity.UserAccount)) *serviceFixture {
	t.Helper()

	priv, pub := testKeyPair(t)

	cfg := config.Config{
		JWT: config.JWTConfig{
			PrivateKey:         priv,
			PublicKey:          pub,
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: time.Hour,
		},
	}

	password := "secret-pass"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	account := entity.UserAccount{
		User: entity.User{
			ID:        uuid.Must(uuid.NewV4()),
			Email:     "nurse@clinic.test",
			FirstName: "Ada",
			LastName:  "Nilsen",
			Role:      entity.RoleNurse,
		},
		PasswordHash: string(hash),
	}

	if mutate != nil {
		mutate(&account)
	}

	users := newFakeUserRepo(account)
	tokens := newFakeTokenRepo()
	hashes := newFakeSessionHashRepo()
	notifier := &fakeNotifier{}

	return &serviceFixture{
		svc:      service.NewService(cfg, users, tokens, hashes, notifier),
		users:    users,
		tokens:   tokens,
		hashes:   hashes,
		notifier: notifier,
		account:  account,
		password: password,
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("success issues tokens, session hash and alert", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		tokens, user, err := f.svc.Login(ctx, f.account.Email, f.password)
		require.NoError(t, err)

		require.Equal(t, f.account.ID, user.ID)
		require.Equal(t, entity.RoleNurse, user.Role)

		require.NotEmpty(t, tokens.AccessToken)
		require.NotEmpty(t, tokens.RefreshToken)
		require.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
		require.Len(t, tokens.SessionHash, 64)

		require.NoError(t, f.tokens.FindRefreshToken(ctx, tokens.RefreshToken))
		require.NoError(t, f.hashes.Verify(ctx, f.account.ID, tokens.SessionHash))
		require.Equal(t, 1, f.notifier.alerts)
	})

	t.Run("email is normalized before lookup", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		_, user, err := f.svc.Login(ctx, "  Nurse@Clinic.TEST  ", f.password)
		require.NoError(t, err)
		require.Equal(t, f.account.ID, user.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		_, _, err := f.svc.Login(ctx, "nobody@clinic.test", f.password)
		require.ErrorIs(t, err, entity.ErrInvalidCredential)
		require.Equal(t, 0, f.notifier.alerts)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		_, _, err := f.svc.Login(ctx, f.account.Email, "wrong-pass")
		require.ErrorIs(t, err, entity.ErrInvalidCredential)
	})

	t.Run("malformed email", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		_, _, err := f.svc.Login(ctx, "not-an-email", f.password)
		require.ErrorIs(t, err, entity.ErrInvalidCredential)
	})

	t.Run("blocked user", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, func(a *entity.UserAccount) {
			a.IsBlocked = true
		})

		_, _, err := f.svc.Login(ctx, f.account.Email, f.password)
		require.ErrorIs(t, err, entity.ErrUserBlocked)
	})
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid token yields fresh snapshot", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		tokens, _, err := f.svc.Login(ctx, f.account.Email, f.password)
		require.NoError(t, err)

		user, err := f.svc.ValidateToken(ctx, tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, f.account.ID, user.ID)
		require.Equal(t, f.account.Email, user.Email)
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		_, err := f.svc.ValidateToken(ctx, "not.a.jwt")
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		priv, pub := testKeyPair(t)
		cfg := config.Config{
			JWT: config.JWTConfig{
				PrivateKey:         priv,
				PublicKey:          pub,
				AccessTokenExpiry:  -time.Minute,
				RefreshTokenExpiry: time.Hour,
			},
		}

		password := "secret-pass"

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)

		account := entity.UserAccount{
			User: entity.User{
				ID:    uuid.Must(uuid.NewV4()),
				Email: "nurse@clinic.test",
				Role:  entity.RoleNurse,
			},
			PasswordHash: string(hash),
		}

		svc := service.NewService(cfg, newFakeUserRepo(account), newFakeTokenRepo(), newFakeSessionHashRepo(), &fakeNotifier{})

		tokens, _, err := svc.Login(ctx, account.Email, password)
		require.NoError(t, err)

		_, err = svc.ValidateToken(ctx, tokens.AccessToken)
		require.ErrorIs(t, err, entity.ErrTokenExpired)
	})
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("rotation consumes the presented token", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		tokens, _, err := f.svc.Login(ctx, f.account.Email, f.password)
		require.NoError(t, err)

		rotated, user, err := f.svc.RefreshToken(ctx, tokens.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, f.account.ID, user.ID)
		require.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

		// Reusing the consumed token is rejected.
		_, _, err = f.svc.RefreshToken(ctx, tokens.RefreshToken)
		require.ErrorIs(t, err, entity.ErrTokenRevoked)

		// The rotated token works.
		_, _, err = f.svc.RefreshToken(ctx, rotated.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		_, _, err := f.svc.RefreshToken(ctx, "not.a.jwt")
		require.Error(t, err)
	})

	t.Run("blocked user cannot refresh", func(t *testing.T) {
		t.Parallel()

		f := newServiceFixture(t, nil)

		tokens, _, err := f.svc.Login(ctx, f.account.Email, f.password)
		require.NoError(t, err)

		blocked := f.account
		blocked.IsBlocked = true
		f.users.byEmail[blocked.Email] = blocked
		f.users.byID[blocked.ID] = blocked

		_, _, err = f.svc.RefreshToken(ctx, tokens.RefreshToken)
		require.ErrorIs(t, err, entity.ErrUserBlocked)
	})
}

func TestRevokeSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newServiceFixture(t, nil)

	tokens, _, err := f.svc.Login(ctx, f.account.Email, f.password)
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeSession(ctx, f.account.ID))

	_, _, err = f.svc.RefreshToken(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, entity.ErrTokenRevoked)

	err = f.svc.VerifySessionHash(ctx, f.account.ID, tokens.SessionHash)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestVerifySessionHash(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newServiceFixture(t, nil)

	tokens, _, err := f.svc.Login(ctx, f.account.Email, f.password)
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifySessionHash(ctx, f.account.ID, tokens.SessionHash))

	err = f.svc.VerifySessionHash(ctx, f.account.ID, "wrong-hash")
	require.ErrorIs(t, err, entity.ErrInvalidSessionHash)
}
