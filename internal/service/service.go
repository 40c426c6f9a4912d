// Package service реализует бизнес-логику сервиса доступа к столовой.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/messhall-system/internal/access"
	"github.com/mmeshcher/messhall-system/internal/model"
	"github.com/mmeshcher/messhall-system/internal/qr"
	"github.com/mmeshcher/messhall-system/internal/schedule"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateMember(ctx context.Context, m *model.Member) error
	GetMemberByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	UpdateMemberStatus(ctx context.Context, id uuid.UUID, status model.MemberStatus) error
	UpdateMemberCredential(ctx context.Context, id uuid.UUID, version int, nonce string) error
	ListApprovedMemberIDs(ctx context.Context) ([]uuid.UUID, error)
	CountApprovedMembers(ctx context.Context) (int64, error)

	GetSecretEpoch(ctx context.Context) (int, error)
	BumpSecretEpoch(ctx context.Context) (int, error)

	CreatePaymentCycle(ctx context.Context, p *model.PaymentCycle) error
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus, source *model.PaymentSource, reviewerAdminID int64) error
	HasVerifiedPaymentForDate(ctx context.Context, memberID uuid.UUID, date time.Time) (bool, error)
	CountVerifiedPayments(ctx context.Context) (int64, error)

	CreateMessCut(ctx context.Context, c *model.MessCut) error
	HasCutForDate(ctx context.Context, memberID uuid.UUID, date time.Time) (bool, error)

	CreateClosure(ctx context.Context, c *model.MessClosure) error
	IsClosedForDate(ctx context.Context, date time.Time) (bool, error)
	ListClosures(ctx context.Context) ([]model.MessClosure, error)

	CreateScanRecord(ctx context.Context, rec *model.ScanRecord) error
	CountScansForDate(ctx context.Context, date time.Time, onlyAllowed bool) (int64, error)
}

var (
	rollNoRe = regexp.MustCompile(`^[A-Z0-9]{4,20}$`)
	phoneRe  = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
	nameRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z\s.\-]{1,99}$`)
)

// Service содержит бизнес-логику сервиса доступа к столовой.
type Service struct {
	repo    Repository
	codec   *qr.Codec
	cutoff  schedule.TimeOfDay
	windows map[model.Meal]schedule.Window
	loc     *time.Location
	now     func() time.Time
}

// NewService создаёт сервис с указанным репозиторием, кодеком учёток и
// параметрами расписания столовой.
func NewService(repo Repository, codec *qr.Codec, cutoff schedule.TimeOfDay, windows map[model.Meal]schedule.Window, loc *time.Location) *Service {
	return &Service{
		repo:    repo,
		codec:   codec,
		cutoff:  cutoff,
		windows: windows,
		loc:     loc,
		now:     time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) lookups() access.Lookups {
	return access.Lookups{
		Payment: s.repo.HasVerifiedPaymentForDate,
		Cut:     s.repo.HasCutForDate,
		Closure: s.repo.IsClosedForDate,
	}
}

// ScanOutcome — результат обработки одного сканирования.
// Снимок проживающего возвращается только при допуске; при отказе терминал
// получает вердикт и причину.
type ScanOutcome struct {
	ScanID   uuid.UUID
	Result   model.ScanResult
	Reason   string
	Snapshot *access.Snapshot
}

// Scan обрабатывает одно сканирование QR-кода: проверяет учётку, вычисляет
// вердикт и фиксирует факт сканирования. Запись создаётся при любом вердикте,
// отказы — такие же данные аудита, как и допуски.
func (s *Service) Scan(ctx context.Context, qrPayload string, meal model.Meal, staff *model.StaffToken, deviceInfo string) (*ScanOutcome, error) {
	epoch, err := s.repo.GetSecretEpoch(ctx)
	if err != nil {
		return nil, err
	}

	var member *model.Member
	lookup := func(ctx context.Context, id uuid.UUID) (*model.Member, error) {
		m, err := s.repo.GetMemberByID(ctx, id)
		if err != nil {
			return nil, err
		}
		member = m
		return m, nil
	}

	// Отсутствие проживающего неотличимо снаружи от подделанной учётки.
	if _, err := s.codec.Verify(ctx, qrPayload, epoch, lookup); err != nil {
		return nil, qr.ErrInvalidCredential
	}

	now := s.localNow()
	today := schedule.DateOf(now)

	decision, err := access.Decide(ctx, member, today, s.lookups())
	if err != nil {
		return nil, err
	}

	rec := &model.ScanRecord{
		ID:         uuid.New(),
		MemberID:   member.ID,
		Meal:       meal,
		Result:     decision.Result,
		ScannedAt:  now,
		DeviceInfo: deviceInfo,
	}
	if staff != nil {
		id := staff.ID
		rec.StaffTokenID = &id
	}

	if err := s.repo.CreateScanRecord(ctx, rec); err != nil {
		return nil, err
	}

	outcome := &ScanOutcome{
		ScanID: rec.ID,
		Result: decision.Result,
	}

	if decision.Result == model.ScanAllowed {
		snapshot, err := access.BuildSnapshot(ctx, member, today, s.lookups())
		if err != nil {
			return nil, err
		}
		outcome.Snapshot = snapshot
	} else {
		outcome.Reason = decision.Reason
	}

	return outcome, nil
}

// Snapshot возвращает текущую проекцию проживающего без записи сканирования.
func (s *Service) Snapshot(ctx context.Context, memberID uuid.UUID) (*access.Snapshot, error) {
	m, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	today := schedule.DateOf(s.localNow())
	return access.BuildSnapshot(ctx, m, today, s.lookups())
}

// IssueCredentialQR выпускает PNG с QR-кодом учётки одобренного проживающего.
func (s *Service) IssueCredentialQR(ctx context.Context, memberID uuid.UUID) ([]byte, error) {
	m, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.MemberStatusApproved {
		return nil, fmt.Errorf("member %s is not approved", memberID)
	}

	epoch, err := s.repo.GetSecretEpoch(ctx)
	if err != nil {
		return nil, err
	}

	return qr.EncodePNG(s.codec.Issue(m, epoch, s.localNow()))
}

// RotationFailure описывает проживающего, чью учётку не удалось обновить.
type RotationFailure struct {
	MemberID uuid.UUID `json:"member_id"`
	Error    string    `json:"error"`
}

// RotationReport — итог массовой ротации учёток.
type RotationReport struct {
	NewEpoch int               `json:"new_epoch"`
	Rotated  []uuid.UUID       `json:"rotated"`
	Failed   []RotationFailure `json:"failed,omitempty"`
}

// RotateGlobalEpoch продвигает эпоху общего секрета и перевыпускает учётки
// всех одобренных проживающих. Операция намеренно best-effort: сбой одного
// проживающего не останавливает остальных, итог отражается по каждому.
func (s *Service) RotateGlobalEpoch(ctx context.Context) (*RotationReport, error) {
	epoch, err := s.repo.BumpSecretEpoch(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.repo.ListApprovedMemberIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &RotationReport{NewEpoch: epoch}
	for _, id := range ids {
		nonce, err := newNonce()
		if err == nil {
			err = s.repo.UpdateMemberCredential(ctx, id, epoch, nonce)
		}
		if err != nil {
			report.Failed = append(report.Failed, RotationFailure{MemberID: id, Error: err.Error()})
			continue
		}
		report.Rotated = append(report.Rotated, id)
	}

	return report, nil
}

// RotateMemberCredential перевыпускает учётку одного проживающего: новый
// nonce, версия выравнивается по текущей эпохе. Ранее выданный QR-код
// перестаёт приниматься.
func (s *Service) RotateMemberCredential(ctx context.Context, memberID uuid.UUID) (int, string, error) {
	if _, err := s.repo.GetMemberByID(ctx, memberID); err != nil {
		return 0, "", err
	}

	epoch, err := s.repo.GetSecretEpoch(ctx)
	if err != nil {
		return 0, "", err
	}

	nonce, err := newNonce()
	if err != nil {
		return 0, "", err
	}

	if err := s.repo.UpdateMemberCredential(ctx, memberID, epoch, nonce); err != nil {
		return 0, "", err
	}

	return epoch, nonce, nil
}

// RegisterMemberInput — данные регистрации нового проживающего.
type RegisterMemberInput struct {
	TGUserID int64
	Name     string
	RollNo   string
	RoomNo   string
	Phone    string
}

// RegisterMember создаёт заявку на регистрацию в статусе PENDING.
func (s *Service) RegisterMember(ctx context.Context, in RegisterMemberInput) (*model.Member, error) {
	name := strings.TrimSpace(in.Name)
	rollNo := strings.ToUpper(strings.TrimSpace(in.RollNo))
	roomNo := strings.TrimSpace(in.RoomNo)
	phone := strings.TrimSpace(in.Phone)

	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid member name")
	}
	if !rollNoRe.MatchString(rollNo) {
		return nil, fmt.Errorf("invalid roll number")
	}
	if roomNo == "" || len(roomNo) > 10 {
		return nil, fmt.Errorf("invalid room number")
	}
	if !phoneRe.MatchString(phone) {
		return nil, fmt.Errorf("invalid phone number")
	}
	if in.TGUserID <= 0 {
		return nil, fmt.Errorf("invalid telegram user id")
	}

	epoch, err := s.repo.GetSecretEpoch(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	m := &model.Member{
		ID:                uuid.New(),
		TGUserID:          in.TGUserID,
		Name:              name,
		RollNo:            rollNo,
		RoomNo:            roomNo,
		Phone:             phone,
		Status:            model.MemberStatusPending,
		CredentialVersion: epoch,
		CredentialNonce:   nonce,
	}

	if err := s.repo.CreateMember(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// ApproveMember одобряет заявку и возвращает PNG с QR-кодом учётки.
func (s *Service) ApproveMember(ctx context.Context, memberID uuid.UUID) ([]byte, error) {
	if err := s.repo.UpdateMemberStatus(ctx, memberID, model.MemberStatusApproved); err != nil {
		return nil, err
	}
	return s.IssueCredentialQR(ctx, memberID)
}

// DenyMember отклоняет заявку на регистрацию.
func (s *Service) DenyMember(ctx context.Context, memberID uuid.UUID) error {
	return s.repo.UpdateMemberStatus(ctx, memberID, model.MemberStatusDenied)
}

// Платёжный цикл должен быть похож на реальный период питания.
const (
	minCycleDays   = 15
	maxCycleDays   = 365
	minAmountPaise = 100 * 100
	maxAmountPaise = 50000 * 100
)

// UploadPaymentCycleInput — данные загрузки платежа.
type UploadPaymentCycleInput struct {
	MemberID   uuid.UUID
	CycleStart time.Time
	CycleEnd   time.Time
	Amount     float64
}

// UploadPaymentCycle сохраняет загруженный платёж в статусе UPLOADED.
// Пересечение с активным циклом проживающего отклоняется.
func (s *Service) UploadPaymentCycle(ctx context.Context, in UploadPaymentCycleInput) (*model.PaymentCycle, error) {
	start := schedule.DateOf(in.CycleStart)
	end := schedule.DateOf(in.CycleEnd)

	if !start.Before(end) {
		return nil, fmt.Errorf("cycle start must be before cycle end")
	}
	if days := int(end.Sub(start).Hours() / 24); days < minCycleDays || days > maxCycleDays {
		return nil, fmt.Errorf("payment cycle must be between %d and %d days", minCycleDays, maxCycleDays)
	}

	// Сумма приходит в рупиях как float64, поэтому только округление:
	// усечение теряет пайсу на суммах вида 2145.70.
	amountPaise := int64(math.Round(in.Amount * 100))
	if amountPaise < minAmountPaise || amountPaise > maxAmountPaise {
		return nil, fmt.Errorf("payment amount out of allowed range")
	}

	p := &model.PaymentCycle{
		ID:          uuid.New(),
		MemberID:    in.MemberID,
		CycleStart:  start,
		CycleEnd:    end,
		AmountPaise: amountPaise,
		Status:      model.PaymentStatusUploaded,
		Source:      model.PaymentSourceOnlineScreenshot,
	}

	if err := s.repo.CreatePaymentCycle(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// VerifyPayment подтверждает загруженный платёж.
func (s *Service) VerifyPayment(ctx context.Context, paymentID uuid.UUID, adminID int64) error {
	return s.repo.SetPaymentStatus(ctx, paymentID, model.PaymentStatusVerified, nil, adminID)
}

// DenyPayment отклоняет загруженный платёж.
func (s *Service) DenyPayment(ctx context.Context, paymentID uuid.UUID, adminID int64) error {
	return s.repo.SetPaymentStatus(ctx, paymentID, model.PaymentStatusDenied, nil, adminID)
}

// MarkManualPaid отмечает платёж подтверждённым при оплате наличными.
func (s *Service) MarkManualPaid(ctx context.Context, paymentID uuid.UUID, adminID int64) error {
	source := model.PaymentSourceOfflineManual
	return s.repo.SetPaymentStatus(ctx, paymentID, model.PaymentStatusVerified, &source, adminID)
}

// RequestMessCut оформляет отказ от питания с проверкой правила дедлайна
// и отсутствия пересечений.
func (s *Service) RequestMessCut(ctx context.Context, memberID uuid.UUID, fromDate, toDate time.Time, appliedBy model.AppliedBy) (*model.MessCut, error) {
	now := s.localNow()
	if err := schedule.ValidateCutRange(fromDate, toDate, now, s.cutoff); err != nil {
		return nil, err
	}

	c := &model.MessCut{
		ID:        uuid.New(),
		MemberID:  memberID,
		FromDate:  schedule.DateOf(fromDate),
		ToDate:    schedule.DateOf(toDate),
		AppliedAt: now,
		AppliedBy: appliedBy,
		CutoffOK:  true,
	}

	if err := s.repo.CreateMessCut(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// CreateClosure объявляет закрытие столовой на диапазон дат.
func (s *Service) CreateClosure(ctx context.Context, fromDate, toDate time.Time, reason string, adminID int64) (*model.MessClosure, error) {
	from := schedule.DateOf(fromDate)
	to := schedule.DateOf(toDate)
	if from.After(to) {
		return nil, fmt.Errorf("closure from date is after to date")
	}

	c := &model.MessClosure{
		ID:               uuid.New(),
		FromDate:         from,
		ToDate:           to,
		Reason:           strings.TrimSpace(reason),
		CreatedByAdminID: adminID,
	}

	if err := s.repo.CreateClosure(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// ListClosures возвращает объявленные закрытия столовой.
func (s *Service) ListClosures(ctx context.Context) ([]model.MessClosure, error) {
	return s.repo.ListClosures(ctx)
}

// Status — сводка для терминала сканера.
type Status struct {
	ApprovedMembers  int64      `json:"approved_members"`
	VerifiedPayments int64      `json:"verified_payments"`
	ScansToday       int64      `json:"scans_today"`
	AllowedToday     int64      `json:"allowed_today"`
	CurrentMeal      model.Meal `json:"current_meal,omitempty"`
	ServerTime       time.Time  `json:"server_time"`
}

// ScannerStatus возвращает сводку состояния системы для терминала.
func (s *Service) ScannerStatus(ctx context.Context) (*Status, error) {
	now := s.localNow()
	today := schedule.DateOf(now)

	approved, err := s.repo.CountApprovedMembers(ctx)
	if err != nil {
		return nil, err
	}
	verified, err := s.repo.CountVerifiedPayments(ctx)
	if err != nil {
		return nil, err
	}
	scans, err := s.repo.CountScansForDate(ctx, today, false)
	if err != nil {
		return nil, err
	}
	allowed, err := s.repo.CountScansForDate(ctx, today, true)
	if err != nil {
		return nil, err
	}

	st := &Status{
		ApprovedMembers:  approved,
		VerifiedPayments: verified,
		ScansToday:       scans,
		AllowedToday:     allowed,
		ServerTime:       now,
	}

	if meal, ok := schedule.CurrentMealWindow(now, s.windows); ok {
		st.CurrentMeal = meal
	}

	return st, nil
}

func newNonce() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
