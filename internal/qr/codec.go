// Package qr реализует кодек подписанных QR-учёток проживающих.
package qr

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mmeshcher/messhall-system/internal/model"
)

// ErrInvalidCredential возвращается на любую некорректную, подделанную или
// отозванную учётку. Причина отказа наружу не раскрывается.
var ErrInvalidCredential = errors.New("invalid credential")

const payloadSep = "|"

// MemberLookup возвращает проживающего по идентификатору.
// Отсутствие проживающего сообщается через model-независимую ошибку.
type MemberLookup func(ctx context.Context, id uuid.UUID) (*model.Member, error)

// Codec подписывает и проверяет полезную нагрузку QR-кода.
// Текущая эпоха секрета передаётся явно при каждой проверке,
// кодек не хранит изменяемого состояния.
type Codec struct {
	secret []byte
}

// NewCodec создаёт кодек с указанным общим секретом.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Issue формирует подписанную полезную нагрузку QR-кода для проживающего.
// issuedAt фиксируется для аудита и не участвует в проверке срока действия.
func (c *Codec) Issue(m *model.Member, epoch int, now time.Time) string {
	message := strings.Join([]string{
		strconv.Itoa(epoch),
		m.ID.String(),
		strconv.FormatInt(now.Unix(), 10),
		m.CredentialNonce,
	}, payloadSep)

	return message + payloadSep + c.sign(message)
}

// Verify проверяет полезную нагрузку и возвращает идентификатор проживающего.
// Любое несоответствие — формат, подпись, эпоха, отсутствие проживающего,
// несовпадение nonce или версии — возвращается как ErrInvalidCredential.
func (c *Codec) Verify(ctx context.Context, payload string, epoch int, lookup MemberLookup) (uuid.UUID, error) {
	parts := strings.Split(payload, payloadSep)
	if len(parts) != 5 {
		return uuid.Nil, ErrInvalidCredential
	}

	version, memberID, issuedAt, nonce, signature := parts[0], parts[1], parts[2], parts[3], parts[4]

	message := strings.Join([]string{version, memberID, issuedAt, nonce}, payloadSep)
	expected := c.sign(message)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return uuid.Nil, ErrInvalidCredential
	}

	v, err := strconv.Atoi(version)
	if err != nil || v != epoch {
		return uuid.Nil, ErrInvalidCredential
	}

	id, err := uuid.Parse(memberID)
	if err != nil {
		return uuid.Nil, ErrInvalidCredential
	}

	m, err := lookup(ctx, id)
	if err != nil || m == nil {
		return uuid.Nil, ErrInvalidCredential
	}

	if m.CredentialNonce != nonce || m.CredentialVersion != v {
		return uuid.Nil, ErrInvalidCredential
	}

	return m.ID, nil
}

func (c *Codec) sign(message string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// EncodePNG кодирует полезную нагрузку в PNG-изображение QR-кода.
func EncodePNG(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
