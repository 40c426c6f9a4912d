package qr

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/messhall-system/internal/model"
)

func testMember() *model.Member {
	return &model.Member{
		ID:                uuid.New(),
		Name:              "Test Member",
		Status:            model.MemberStatusApproved,
		CredentialVersion: 1,
		CredentialNonce:   "a1b2c3d4e5f6",
	}
}

func lookupFor(m *model.Member) MemberLookup {
	return func(ctx context.Context, id uuid.UUID) (*model.Member, error) {
		if m != nil && id == m.ID {
			return m, nil
		}
		return nil, errors.New("member not found")
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	m := testMember()

	payload := c.Issue(m, 1, time.Now())

	id, err := c.Verify(context.Background(), payload, 1, lookupFor(m))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id != m.ID {
		t.Fatalf("Verify() id = %s, want %s", id, m.ID)
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	m := testMember()

	payload := c.Issue(m, 1, time.Now())

	// Портим последний символ подписи.
	last := payload[len(payload)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	tampered := payload[:len(payload)-1] + string(flipped)

	if _, err := c.Verify(context.Background(), tampered, 1, lookupFor(m)); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestVerify_TamperedFields(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	m := testMember()
	other := testMember()

	payload := c.Issue(m, 1, time.Now())
	parts := strings.Split(payload, "|")

	tests := []struct {
		name  string
		parts []string
	}{
		{
			name:  "altered version",
			parts: []string{"2", parts[1], parts[2], parts[3], parts[4]},
		},
		{
			name:  "altered member id",
			parts: []string{parts[0], other.ID.String(), parts[2], parts[3], parts[4]},
		},
		{
			name:  "altered nonce",
			parts: []string{parts[0], parts[1], parts[2], "ffffffffffff", parts[4]},
		},
		{
			name:  "truncated payload",
			parts: parts[:4],
		},
		{
			name:  "extra field",
			parts: append(append([]string{}, parts...), "extra"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := strings.Join(tt.parts, "|")
			if _, err := c.Verify(context.Background(), tampered, 1, lookupFor(m)); !errors.Is(err, ErrInvalidCredential) {
				t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
			}
		})
	}
}

func TestVerify_EpochIsolation(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	m := testMember()

	payload := c.Issue(m, 1, time.Now())

	// Эпоха продвинулась, nonce проживающего не менялся.
	if _, err := c.Verify(context.Background(), payload, 2, lookupFor(m)); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() with stale epoch error = %v, want ErrInvalidCredential", err)
	}
}

func TestVerify_RotatedNonce(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	m := testMember()

	payload := c.Issue(m, 1, time.Now())

	m.CredentialNonce = "0123456789ab"

	if _, err := c.Verify(context.Background(), payload, 1, lookupFor(m)); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() after nonce rotation error = %v, want ErrInvalidCredential", err)
	}
}

func TestVerify_MemberNotFound(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	m := testMember()

	payload := c.Issue(m, 1, time.Now())

	if _, err := c.Verify(context.Background(), payload, 1, lookupFor(nil)); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() for missing member error = %v, want ErrInvalidCredential", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	c := NewCodec([]byte("test-secret"))

	inputs := []string{
		"",
		"not a payload",
		"1|2|3|4",
		"1|2|3|4|nothex|extra",
	}

	for _, in := range inputs {
		if _, err := c.Verify(context.Background(), in, 1, lookupFor(nil)); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("Verify(%q) error = %v, want ErrInvalidCredential", in, err)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	m := testMember()

	png, err := EncodePNG(c.Issue(m, 1, time.Now()))
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	if len(png) == 0 {
		t.Fatalf("EncodePNG() returned empty image")
	}
}
