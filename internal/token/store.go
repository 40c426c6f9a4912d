// Package token управляет bearer-токенами персонала сканера.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/messhall-system/internal/model"
	"github.com/mmeshcher/messhall-system/internal/repository"
)

var (
	// ErrUnauthenticated возвращается на любой недействительный bearer-токен:
	// неизвестный, отозванный или просроченный.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAlreadyExpired возвращается при попытке реактивировать просроченный токен.
	ErrAlreadyExpired = errors.New("token already expired")
)

const secretBytes = 32

// Repository описывает контракт хранения токенов персонала.
type Repository interface {
	CreateStaffToken(ctx context.Context, t *model.StaffToken) error
	GetStaffTokenByHash(ctx context.Context, hash string) (*model.StaffToken, error)
	GetStaffTokenByID(ctx context.Context, id uuid.UUID) (*model.StaffToken, error)
	SetStaffTokenActive(ctx context.Context, id uuid.UUID, active bool) error
	ListStaffTokens(ctx context.Context) ([]model.StaffToken, error)
}

// Store выпускает и проверяет токены персонала. В хранилище попадает только
// SHA-256 хэш секрета, сырое значение возвращается ровно один раз.
type Store struct {
	repo Repository
	now  func() time.Time
}

// NewStore создаёт хранилище токенов поверх указанного репозитория.
func NewStore(repo Repository) *Store {
	return &Store{
		repo: repo,
		now:  time.Now,
	}
}

// Issue выпускает новый токен с меткой и необязательным сроком жизни.
// Нулевой ttl означает бессрочный токен.
func (s *Store) Issue(ctx context.Context, label string, ttl time.Duration) (*model.StaffToken, string, error) {
	label = strings.TrimSpace(label)
	if len(label) < 3 || len(label) > 100 {
		return nil, "", fmt.Errorf("token label must be between 3 and 100 characters")
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("generate token secret: %w", err)
	}
	rawSecret := base64.RawURLEncoding.EncodeToString(buf)

	now := s.now()
	t := &model.StaffToken{
		ID:        uuid.New(),
		Label:     label,
		TokenHash: HashSecret(rawSecret),
		Active:    true,
		IssuedAt:  now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		t.ExpiresAt = &expires
	}

	if err := s.repo.CreateStaffToken(ctx, t); err != nil {
		return nil, "", fmt.Errorf("store staff token: %w", err)
	}

	return t, rawSecret, nil
}

// Authenticate проверяет предъявленное сырое значение токена.
// Отказывает закрыто: любая причина недействительности неразличима снаружи.
func (s *Store) Authenticate(ctx context.Context, bearer string) (*model.StaffToken, error) {
	t, err := s.repo.GetStaffTokenByHash(ctx, HashSecret(bearer))
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup staff token: %w", err)
	}

	if !t.IsValid(s.now()) {
		return nil, ErrUnauthenticated
	}

	return t, nil
}

// Revoke деактивирует токен. Повторный вызов не является ошибкой.
func (s *Store) Revoke(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStaffTokenActive(ctx, id, false)
}

// Reactivate снова включает токен. Просроченный токен реактивировать нельзя.
func (s *Store) Reactivate(ctx context.Context, id uuid.UUID) error {
	t, err := s.repo.GetStaffTokenByID(ctx, id)
	if err != nil {
		return err
	}

	if t.ExpiresAt != nil && !t.ExpiresAt.After(s.now()) {
		return ErrAlreadyExpired
	}

	return s.repo.SetStaffTokenActive(ctx, id, true)
}

// List возвращает все токены персонала.
func (s *Store) List(ctx context.Context) ([]model.StaffToken, error) {
	return s.repo.ListStaffTokens(ctx)
}

// HashSecret возвращает hex-представление SHA-256 хэша сырого секрета.
// Хэш служит ключом поиска, поэтому сравнение по равенству строк безопасно.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
