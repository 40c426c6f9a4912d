// Package access реализует движок принятия решений о допуске к питанию.
// Движок не обращается к хранилищу и не имеет побочных эффектов: все
// необходимые факты передаются через функции-просмотры.
package access

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/messhall-system/internal/model"
)

// PaymentLookup сообщает, есть ли у проживающего подтверждённый платёж на дату.
type PaymentLookup func(ctx context.Context, memberID uuid.UUID, date time.Time) (bool, error)

// CutLookup сообщает, действует ли у проживающего отказ от питания на дату.
type CutLookup func(ctx context.Context, memberID uuid.UUID, date time.Time) (bool, error)

// ClosureLookup сообщает, закрыта ли столовая на дату.
type ClosureLookup func(ctx context.Context, date time.Time) (bool, error)

// Lookups объединяет просмотры состояния, необходимые для вердикта.
type Lookups struct {
	Payment PaymentLookup
	Cut     CutLookup
	Closure ClosureLookup
}

// Decision — итог одной проверки допуска.
type Decision struct {
	Result model.ScanResult
	Reason string
}

// OverallStatus — агрегированный статус проживающего для отображения.
type OverallStatus string

const (
	OverallNotApproved OverallStatus = "NOT_APPROVED"
	OverallNoPayment   OverallStatus = "NO_PAYMENT"
	OverallCutOrClosed OverallStatus = "CUT_OR_CLOSED"
	OverallAllowed     OverallStatus = "ALLOWED"
)

// Snapshot — проекция текущего положения проживающего, отдаваемая терминалу.
type Snapshot struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	RollNo        string             `json:"roll_no"`
	RoomNo        string             `json:"room_no"`
	Status        model.MemberStatus `json:"status"`
	PaymentOK     bool               `json:"payment_ok"`
	TodayCut      bool               `json:"today_cut"`
	ClosureToday  bool               `json:"closure_today"`
	OverallStatus OverallStatus      `json:"overall_status"`
}

// Decide вычисляет вердикт для проживающего на указанную дату.
// Правила применяются в строгом порядке: статус, платёж, отказ или закрытие.
// Порядок — контракт: он определяет, какую причину увидит проживающий.
func Decide(ctx context.Context, m *model.Member, today time.Time, lk Lookups) (Decision, error) {
	if m.Status != model.MemberStatusApproved {
		return Decision{Result: model.ScanBlockedStatus, Reason: "Student not approved"}, nil
	}

	paymentOK, err := lk.Payment(ctx, m.ID, today)
	if err != nil {
		return Decision{}, err
	}
	if !paymentOK {
		return Decision{Result: model.ScanBlockedNoPayment, Reason: "No valid payment for current period"}, nil
	}

	cut, err := lk.Cut(ctx, m.ID, today)
	if err != nil {
		return Decision{}, err
	}
	if cut {
		return Decision{Result: model.ScanBlockedCut, Reason: "Student has mess cut for today"}, nil
	}

	closed, err := lk.Closure(ctx, today)
	if err != nil {
		return Decision{}, err
	}
	if closed {
		return Decision{Result: model.ScanBlockedCut, Reason: "Mess is closed today"}, nil
	}

	return Decision{Result: model.ScanAllowed, Reason: "Access granted"}, nil
}

// BuildSnapshot собирает проекцию проживающего теми же тремя проверками,
// что и Decide, с тем же порядком приоритета в OverallStatus.
func BuildSnapshot(ctx context.Context, m *model.Member, today time.Time, lk Lookups) (*Snapshot, error) {
	paymentOK, err := lk.Payment(ctx, m.ID, today)
	if err != nil {
		return nil, err
	}

	cut, err := lk.Cut(ctx, m.ID, today)
	if err != nil {
		return nil, err
	}

	closed, err := lk.Closure(ctx, today)
	if err != nil {
		return nil, err
	}

	overall := OverallAllowed
	switch {
	case m.Status != model.MemberStatusApproved:
		overall = OverallNotApproved
	case !paymentOK:
		overall = OverallNoPayment
	case cut || closed:
		overall = OverallCutOrClosed
	}

	return &Snapshot{
		ID:            m.ID,
		Name:          m.Name,
		RollNo:        m.RollNo,
		RoomNo:        m.RoomNo,
		Status:        m.Status,
		PaymentOK:     paymentOK,
		TodayCut:      cut,
		ClosureToday:  closed,
		OverallStatus: overall,
	}, nil
}
