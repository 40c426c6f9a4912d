// Package handler содержит HTTP-обработчики API сервиса доступа к столовой.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/messhall-system/internal/access"
	"github.com/mmeshcher/messhall-system/internal/middleware"
	"github.com/mmeshcher/messhall-system/internal/model"
	"github.com/mmeshcher/messhall-system/internal/qr"
	"github.com/mmeshcher/messhall-system/internal/repository"
	"github.com/mmeshcher/messhall-system/internal/schedule"
	"github.com/mmeshcher/messhall-system/internal/service"
	"github.com/mmeshcher/messhall-system/internal/token"
)

const dateLayout = "2006-01-02"

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Scan(ctx context.Context, qrPayload string, meal model.Meal, staff *model.StaffToken, deviceInfo string) (*service.ScanOutcome, error)
	Snapshot(ctx context.Context, memberID uuid.UUID) (*access.Snapshot, error)
	ScannerStatus(ctx context.Context) (*service.Status, error)

	RegisterMember(ctx context.Context, in service.RegisterMemberInput) (*model.Member, error)
	ApproveMember(ctx context.Context, memberID uuid.UUID) ([]byte, error)
	DenyMember(ctx context.Context, memberID uuid.UUID) error

	UploadPaymentCycle(ctx context.Context, in service.UploadPaymentCycleInput) (*model.PaymentCycle, error)
	VerifyPayment(ctx context.Context, paymentID uuid.UUID, adminID int64) error
	DenyPayment(ctx context.Context, paymentID uuid.UUID, adminID int64) error
	MarkManualPaid(ctx context.Context, paymentID uuid.UUID, adminID int64) error

	RequestMessCut(ctx context.Context, memberID uuid.UUID, fromDate, toDate time.Time, appliedBy model.AppliedBy) (*model.MessCut, error)
	CreateClosure(ctx context.Context, fromDate, toDate time.Time, reason string, adminID int64) (*model.MessClosure, error)
	ListClosures(ctx context.Context) ([]model.MessClosure, error)

	IssueCredentialQR(ctx context.Context, memberID uuid.UUID) ([]byte, error)
	RotateGlobalEpoch(ctx context.Context) (*service.RotationReport, error)
	RotateMemberCredential(ctx context.Context, memberID uuid.UUID) (int, string, error)
}

// TokenStore определяет контракт управления токенами персонала.
type TokenStore interface {
	Issue(ctx context.Context, label string, ttl time.Duration) (*model.StaffToken, string, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]model.StaffToken, error)
}

// Handler реализует HTTP-обработчики API сервиса доступа к столовой.
type Handler struct {
	service   Service
	tokens    TokenStore
	logger    *zap.Logger
	staffAuth *middleware.StaffAuth
	adminAuth *middleware.AdminAuth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, tokens TokenStore, logger *zap.Logger, staffAuth *middleware.StaffAuth, adminAuth *middleware.AdminAuth) *Handler {
	return &Handler{
		service:   s,
		tokens:    tokens,
		logger:    logger,
		staffAuth: staffAuth,
		adminAuth: adminAuth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func idFromRequest(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

type scanRequest struct {
	QRPayload  string `json:"qr_payload"`
	Meal       string `json:"meal"`
	DeviceInfo string `json:"device_info"`
}

type scanResponse struct {
	ScanID uuid.UUID        `json:"scan_id"`
	Result model.ScanResult `json:"result"`
	Reason string           `json:"reason,omitempty"`
	Member *access.Snapshot `json:"member,omitempty"`
}

// Scan обрабатывает сканирование QR-кода терминалом.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.QRPayload == "" || !model.IsValidMeal(req.Meal) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	staff, _ := middleware.GetStaffTokenFromContext(r.Context())

	out, err := h.service.Scan(r.Context(), req.QRPayload, model.Meal(req.Meal), staff, req.DeviceInfo)
	if err != nil {
		if errors.Is(err, qr.ErrInvalidCredential) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("scan error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, scanResponse{
		ScanID: out.ScanID,
		Result: out.Result,
		Reason: out.Reason,
		Member: out.Snapshot,
	})
}

// Snapshot возвращает текущую проекцию проживающего без записи сканирования.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	snapshot, err := h.service.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("snapshot error", zap.Error(err), zap.String("memberID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// ScannerStatus возвращает сводку состояния для терминала.
func (h *Handler) ScannerStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.ScannerStatus(r.Context())
	if err != nil {
		h.logger.Error("scanner status error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, st)
}

type registerRequest struct {
	TGUserID int64  `json:"tg_user_id"`
	Name     string `json:"name"`
	RollNo   string `json:"roll_no"`
	RoomNo   string `json:"room_no"`
	Phone    string `json:"phone"`
}

type memberResponse struct {
	ID     uuid.UUID          `json:"id"`
	Name   string             `json:"name"`
	RollNo string             `json:"roll_no"`
	RoomNo string             `json:"room_no"`
	Status model.MemberStatus `json:"status"`
}

// RegisterMember принимает заявку на регистрацию проживающего.
func (h *Handler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	m, err := h.service.RegisterMember(r.Context(), service.RegisterMemberInput{
		TGUserID: req.TGUserID,
		Name:     req.Name,
		RollNo:   req.RollNo,
		RoomNo:   req.RoomNo,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, memberResponse{
		ID:     m.ID,
		Name:   m.Name,
		RollNo: m.RollNo,
		RoomNo: m.RoomNo,
		Status: m.Status,
	})
}

// ApproveMember одобряет заявку и возвращает PNG с QR-кодом учётки.
func (h *Handler) ApproveMember(w http.ResponseWriter, r *http.Request) {
	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	png, err := h.service.ApproveMember(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMemberNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrNotPending):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("approve member error", zap.Error(err), zap.String("memberID", id.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Error("write qr png error", zap.Error(err))
	}
}

// DenyMember отклоняет заявку на регистрацию.
func (h *Handler) DenyMember(w http.ResponseWriter, r *http.Request) {
	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DenyMember(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrMemberNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrNotPending):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("deny member error", zap.Error(err), zap.String("memberID", id.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type uploadPaymentRequest struct {
	MemberID   uuid.UUID `json:"member_id"`
	CycleStart string    `json:"cycle_start"`
	CycleEnd   string    `json:"cycle_end"`
	Amount     float64   `json:"amount"`
}

type paymentResponse struct {
	ID     uuid.UUID           `json:"id"`
	Status model.PaymentStatus `json:"status"`
}

// UploadPayment принимает загруженный платёж за период питания.
func (h *Handler) UploadPayment(w http.ResponseWriter, r *http.Request) {
	var req uploadPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	start, err := parseDate(req.CycleStart)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	end, err := parseDate(req.CycleEnd)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.UploadPaymentCycle(r.Context(), service.UploadPaymentCycleInput{
		MemberID:   req.MemberID,
		CycleStart: start,
		CycleEnd:   end,
		Amount:     req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMemberNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrOverlapViolation):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, paymentResponse{ID: p.ID, Status: p.Status})
}

type reviewRequest struct {
	AdminID int64 `json:"admin_id"`
}

func (h *Handler) reviewPayment(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, paymentID uuid.UUID, adminID int64) error) {
	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := apply(r.Context(), id, req.AdminID); err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrNotUploaded):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("review payment error", zap.Error(err), zap.String("paymentID", id.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// VerifyPayment подтверждает загруженный платёж.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	h.reviewPayment(w, r, h.service.VerifyPayment)
}

// DenyPayment отклоняет загруженный платёж.
func (h *Handler) DenyPayment(w http.ResponseWriter, r *http.Request) {
	h.reviewPayment(w, r, h.service.DenyPayment)
}

// MarkManualPaid отмечает платёж подтверждённым при оплате наличными.
func (h *Handler) MarkManualPaid(w http.ResponseWriter, r *http.Request) {
	h.reviewPayment(w, r, h.service.MarkManualPaid)
}

type messCutRequest struct {
	MemberID uuid.UUID `json:"member_id"`
	FromDate string    `json:"from_date"`
	ToDate   string    `json:"to_date"`
	ByAdmin  bool      `json:"by_admin"`
}

type messCutResponse struct {
	ID       uuid.UUID `json:"id"`
	FromDate string    `json:"from_date"`
	ToDate   string    `json:"to_date"`
}

// RequestMessCut оформляет отказ от питания на диапазон дат.
func (h *Handler) RequestMessCut(w http.ResponseWriter, r *http.Request) {
	var req messCutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	from, err := parseDate(req.FromDate)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	to, err := parseDate(req.ToDate)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	appliedBy := model.AppliedByStudent
	if req.ByAdmin {
		appliedBy = model.AppliedByAdminSystem
	}

	cut, err := h.service.RequestMessCut(r.Context(), req.MemberID, from, to, appliedBy)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrCutoffViolation):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrMemberNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrOverlapViolation):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, messCutResponse{
		ID:       cut.ID,
		FromDate: cut.FromDate.Format(dateLayout),
		ToDate:   cut.ToDate.Format(dateLayout),
	})
}

type closureRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Reason   string `json:"reason"`
	AdminID  int64  `json:"admin_id"`
}

type closureResponse struct {
	ID       uuid.UUID `json:"id"`
	FromDate string    `json:"from_date"`
	ToDate   string    `json:"to_date"`
	Reason   string    `json:"reason"`
}

// CreateClosure объявляет закрытие столовой.
func (h *Handler) CreateClosure(w http.ResponseWriter, r *http.Request) {
	var req closureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	from, err := parseDate(req.FromDate)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	to, err := parseDate(req.ToDate)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c, err := h.service.CreateClosure(r.Context(), from, to, req.Reason, req.AdminID)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, closureResponse{
		ID:       c.ID,
		FromDate: c.FromDate.Format(dateLayout),
		ToDate:   c.ToDate.Format(dateLayout),
		Reason:   c.Reason,
	})
}

// ListClosures возвращает объявленные закрытия столовой.
func (h *Handler) ListClosures(w http.ResponseWriter, r *http.Request) {
	closures, err := h.service.ListClosures(r.Context())
	if err != nil {
		h.logger.Error("list closures error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(closures) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]closureResponse, 0, len(closures))
	for _, c := range closures {
		resp = append(resp, closureResponse{
			ID:       c.ID,
			FromDate: c.FromDate.Format(dateLayout),
			ToDate:   c.ToDate.Format(dateLayout),
			Reason:   c.Reason,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// MemberQR возвращает PNG с действующим QR-кодом учётки проживающего.
func (h *Handler) MemberQR(w http.ResponseWriter, r *http.Request) {
	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	png, err := h.service.IssueCredentialQR(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Error("write qr png error", zap.Error(err))
	}
}

// RotateGlobalEpoch перевыпускает учётки всех одобренных проживающих.
func (h *Handler) RotateGlobalEpoch(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RotateGlobalEpoch(r.Context())
	if err != nil {
		h.logger.Error("rotate global epoch error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

type rotateMemberResponse struct {
	Version int `json:"version"`
}

// RotateMemberCredential перевыпускает учётку одного проживающего.
func (h *Handler) RotateMemberCredential(w http.ResponseWriter, r *http.Request) {
	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	version, _, err := h.service.RotateMemberCredential(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("rotate member credential error", zap.Error(err), zap.String("memberID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, rotateMemberResponse{Version: version})
}

type issueTokenRequest struct {
	Label      string `json:"label"`
	TTLMinutes int    `json:"ttl_minutes"`
}

type issueTokenResponse struct {
	ID     uuid.UUID `json:"id"`
	Label  string    `json:"label"`
	Secret string    `json:"secret"`
}

// IssueStaffToken выпускает новый токен персонала. Сырой секрет
// возвращается только в этом ответе.
func (h *Handler) IssueStaffToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	t, secret, err := h.tokens.Issue(r.Context(), req.Label, time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, issueTokenResponse{
		ID:     t.ID,
		Label:  t.Label,
		Secret: secret,
	})
}

type staffTokenResponse struct {
	ID        uuid.UUID  `json:"id"`
	Label     string     `json:"label"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IssuedAt  time.Time  `json:"issued_at"`
}

// ListStaffTokens возвращает все токены персонала без секретов.
func (h *Handler) ListStaffTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.List(r.Context())
	if err != nil {
		h.logger.Error("list staff tokens error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]staffTokenResponse, 0, len(tokens))
	for _, t := range tokens {
		resp = append(resp, staffTokenResponse{
			ID:        t.ID,
			Label:     t.Label,
			Active:    t.Active,
			ExpiresAt: t.ExpiresAt,
			IssuedAt:  t.IssuedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// RevokeStaffToken деактивирует токен персонала.
func (h *Handler) RevokeStaffToken(w http.ResponseWriter, r *http.Request) {
	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.tokens.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("revoke staff token error", zap.Error(err), zap.String("tokenID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ReactivateStaffToken снова включает отозванный токен персонала.
func (h *Handler) ReactivateStaffToken(w http.ResponseWriter, r *http.Request) {
	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.tokens.Reactivate(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, token.ErrAlreadyExpired):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("reactivate staff token error", zap.Error(err), zap.String("tokenID", id.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
