// Package model содержит доменные сущности сервиса доступа к столовой.
package model

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus описывает статус регистрации проживающего.
type MemberStatus string

const (
	MemberStatusPending  MemberStatus = "PENDING"
	MemberStatusApproved MemberStatus = "APPROVED"
	MemberStatusDenied   MemberStatus = "DENIED"
)

// Member представляет проживающего, имеющего доступ к столовой.
// CredentialVersion и CredentialNonce инвалидируют ранее выданные QR-коды:
// версия меняется глобальной ротацией, nonce — персональной.
type Member struct {
	ID                uuid.UUID
	TGUserID          int64
	Name              string
	RollNo            string
	RoomNo            string
	Phone             string
	Status            MemberStatus
	CredentialVersion int
	CredentialNonce   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PaymentStatus описывает статус платёжного цикла.
type PaymentStatus string

const (
	PaymentStatusNone     PaymentStatus = "NONE"
	PaymentStatusUploaded PaymentStatus = "UPLOADED"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
	PaymentStatusDenied   PaymentStatus = "DENIED"
)

// PaymentSource описывает источник платежа.
type PaymentSource string

const (
	PaymentSourceOnlineScreenshot PaymentSource = "ONLINE_SCREENSHOT"
	PaymentSourceOfflineManual    PaymentSource = "OFFLINE_MANUAL"
)

// PaymentCycle описывает оплаченный период питания проживающего.
// Сумма хранится в пайсах, чтобы избежать ошибок округления.
type PaymentCycle struct {
	ID              uuid.UUID
	MemberID        uuid.UUID
	CycleStart      time.Time
	CycleEnd        time.Time
	AmountPaise     int64
	Status          PaymentStatus
	Source          PaymentSource
	ReviewerAdminID *int64
	ReviewedAt      *time.Time
	CreatedAt       time.Time
}

// AppliedBy описывает инициатора отказа от питания.
type AppliedBy string

const (
	AppliedByStudent     AppliedBy = "STUDENT"
	AppliedByAdminSystem AppliedBy = "ADMIN_SYSTEM"
)

// MessCut описывает персональный отказ проживающего от питания на диапазон дат.
type MessCut struct {
	ID        uuid.UUID
	MemberID  uuid.UUID
	FromDate  time.Time
	ToDate    time.Time
	AppliedAt time.Time
	AppliedBy AppliedBy
	CutoffOK  bool
}

// MessClosure описывает закрытие столовой для всех проживающих на диапазон дат.
type MessClosure struct {
	ID               uuid.UUID
	FromDate         time.Time
	ToDate           time.Time
	Reason           string
	CreatedByAdminID int64
	CreatedAt        time.Time
}

// StaffToken представляет токен доступа персонала к сканеру.
// Хранится только хэш секрета; сырое значение показывается один раз при выпуске.
type StaffToken struct {
	ID        uuid.UUID
	Label     string
	TokenHash string
	Active    bool
	ExpiresAt *time.Time
	IssuedAt  time.Time
}

// IsValid сообщает, действителен ли токен на указанный момент времени.
func (t *StaffToken) IsValid(now time.Time) bool {
	if !t.Active {
		return false
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Meal описывает приём пищи.
type Meal string

const (
	MealBreakfast Meal = "BREAKFAST"
	MealLunch     Meal = "LUNCH"
	MealDinner    Meal = "DINNER"
)

// IsValidMeal проверяет, что строка является известным приёмом пищи.
func IsValidMeal(m string) bool {
	switch Meal(m) {
	case MealBreakfast, MealLunch, MealDinner:
		return true
	}
	return false
}

// ScanResult описывает вердикт одного сканирования.
type ScanResult string

const (
	ScanAllowed          ScanResult = "ALLOWED"
	ScanBlockedStatus    ScanResult = "BLOCKED_STATUS"
	ScanBlockedNoPayment ScanResult = "BLOCKED_NO_PAYMENT"
	ScanBlockedCut       ScanResult = "BLOCKED_CUT"
)

// ScanRecord описывает неизменяемый факт сканирования QR-кода.
// Записи только добавляются; отказы фиксируются наравне с допусками.
type ScanRecord struct {
	ID           uuid.UUID
	MemberID     uuid.UUID
	Meal         Meal
	Result       ScanResult
	ScannedAt    time.Time
	StaffTokenID *uuid.UUID
	DeviceInfo   string
}
