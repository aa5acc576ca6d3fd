package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/validate"
)

const (
	// sessionKeyPrefix + token -> JSON Session.
	sessionKeyPrefix = "session:"

	// userSessionsPrefix + user id -> set of that user's live tokens, so a
	// password change can revoke them.
	userSessionsPrefix = "user_sessions:"

	// sessionTokenBytes is 256 bits of entropy, hex-encoded to 64 characters.
	sessionTokenBytes = 32
)

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (token string, user *User, err error)
	Login(ctx context.Context, input LoginInput) (token string, user *User, err error)
	ValidateSession(ctx context.Context, token string) (*Session, error)
	DestroySession(ctx context.Context, token string) error

	GetUser(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*User, error)

	// ChangePassword verifies the current password, stores the new one and
	// revokes every other session of the user. keepToken stays valid.
	ChangePassword(ctx context.Context, userID, keepToken string, input PasswordInput) error
}

// authService implements AuthService with argon2id hashing and Redis sessions.
type authService struct {
	repo       UserRepository
	redis      *redis.Client
	validator  *validate.Validator
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, rdb *redis.Client, v *validate.Validator, sessionTTL time.Duration) AuthService {
	return &authService{
		repo:       repo,
		redis:      rdb,
		validator:  v,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Register validates the input, checks email uniqueness, hashes the password,
// persists the user and opens a first session.
func (s *authService) Register(ctx context.Context, input RegisterInput) (string, *User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return "", nil, err
	}

	taken, err := s.repo.EmailTaken(ctx, input.Email, "")
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if taken {
		return "", nil, apperror.NewValidationFields(map[string]string{
			"email": "The email has already been taken.",
		})
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return "", nil, apperror.OrInternal(err, "creating user")
	}

	token, err := s.createSession(ctx, user)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return token, user, nil
}

// Login authenticates by email and password and opens a new session.
func (s *authService) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	input.Email = normalizeEmail(input.Email)
	if err := s.validator.Struct(input); err != nil {
		return "", nil, err
	}

	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		// Don't reveal whether the email exists.
		if apperror.IsNotFound(err) {
			return "", nil, apperror.NewUnauthorized("invalid email or password")
		}
		return "", nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return "", nil, apperror.NewUnauthorized("invalid email or password")
	}

	token, err := s.createSession(ctx, user)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return token, user, nil
}

// ValidateSession resolves a token to its session.
func (s *authService) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperror.NewUnauthorized("unauthenticated")
	}

	data, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NewUnauthorized("unauthenticated")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading session from Redis: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("unmarshaling session: %w", err))
	}
	return &session, nil
}

// DestroySession revokes a single token. Unknown tokens are ignored.
func (s *authService) DestroySession(ctx context.Context, token string) error {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		if apperror.SafeCode(err) == 401 {
			return nil
		}
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+token)
	pipe.SRem(ctx, userSessionsPrefix+session.UserID, token)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting session from Redis: %w", err))
	}
	return nil
}

// GetUser returns the caller's own account.
func (s *authService) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.OrInternal(err, "finding user")
	}
	return user, nil
}

// UpdateProfile changes name and email, keeping email unique.
func (s *authService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailTaken(ctx, input.Email, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if taken {
		return nil, apperror.NewConflict("the email has already been taken")
	}

	if err := s.repo.UpdateProfile(ctx, userID, input.Name, input.Email); err != nil {
		return nil, apperror.OrInternal(err, "updating profile")
	}

	return s.GetUser(ctx, userID)
}

// ChangePassword replaces the password after checking the current one.
func (s *authService) ChangePassword(ctx context.Context, userID, keepToken string, input PasswordInput) error {
	if err := s.validator.Struct(input); err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return apperror.OrInternal(err, "finding user")
	}
	if !verifyPassword(input.CurrentPassword, user.PasswordHash) {
		return apperror.NewValidationFields(map[string]string{
			"current_password": "The current password is incorrect.",
		})
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return apperror.OrInternal(err, "updating password")
	}

	if err := s.revokeOtherSessions(ctx, userID, keepToken); err != nil {
		// The password is already changed; stale tokens expire with their TTL.
		slog.Warn("failed to revoke sessions after password change",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// createSession stores a new random token with the configured TTL.
func (s *authService) createSession(ctx context.Context, user *User) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	data, err := json.Marshal(Session{
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}

	setKey := userSessionsPrefix + user.ID
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+token, data, s.sessionTTL)
	pipe.SAdd(ctx, setKey, token)
	pipe.Expire(ctx, setKey, s.sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("storing session in Redis: %w", err)
	}

	return token, nil
}

func (s *authService) revokeOtherSessions(ctx context.Context, userID, keepToken string) error {
	setKey := userSessionsPrefix + userID
	tokens, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	pipe := s.redis.TxPipeline()
	for _, t := range tokens {
		if t == keepToken {
			continue
		}
		pipe.Del(ctx, sessionKeyPrefix+t)
		pipe.SRem(ctx, setKey, t)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// --- Helpers ---

func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
