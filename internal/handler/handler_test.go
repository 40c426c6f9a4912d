package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

type stubService struct {
	scanResp *service.ScanOutcome
	scanErr  error

	snapshotResp *access.Snapshot
	snapshotErr  error

	statusResp *service.Status
	statusErr  error

	registerResp *model.Member
	registerErr  error

	approveResp []byte
	approveErr  error

	denyMemberErr error

	uploadResp *model.PaymentCycle
	uploadErr  error

	reviewErr error

	cutResp *model.MessCut
	cutErr  error

	closureResp  *model.MessClosure
	closureErr   error
	closuresResp []model.MessClosure
	closuresErr  error

	qrResp []byte
	qrErr  error

	rotateAllResp *service.RotationReport
	rotateAllErr  error

	rotateVersion int
	rotateErr     error
}

func (s *stubService) Scan(ctx context.Context, qrPayload string, meal model.Meal, staff *model.StaffToken, deviceInfo string) (*service.ScanOutcome, error) {
	return s.scanResp, s.scanErr
}

func (s *stubService) Snapshot(ctx context.Context, memberID uuid.UUID) (*access.Snapshot, error) {
	return s.snapshotResp, s.snapshotErr
}

func (s *stubService) ScannerStatus(ctx context.Context) (*service.Status, error) {
	return s.statusResp, s.statusErr
}

func (s *stubService) RegisterMember(ctx context.Context, in service.RegisterMemberInput) (*model.Member, error) {
	return s.registerResp, s.registerErr
}

func (s *stubService) ApproveMember(ctx context.Context, memberID uuid.UUID) ([]byte, error) {
	return s.approveResp, s.approveErr
}

func (s *stubService) DenyMember(ctx context.Context, memberID uuid.UUID) error {
	return s.denyMemberErr
}

func (s *stubService) UploadPaymentCycle(ctx context.Context, in service.UploadPaymentCycleInput) (*model.PaymentCycle, error) {
	return s.uploadResp, s.uploadErr
}

func (s *stubService) VerifyPayment(ctx context.Context, paymentID uuid.UUID, adminID int64) error {
	return s.reviewErr
}

func (s *stubService) DenyPayment(ctx context.Context, paymentID uuid.UUID, adminID int64) error {
	return s.reviewErr
}

func (s *stubService) MarkManualPaid(ctx context.Context, paymentID uuid.UUID, adminID int64) error {
	return s.reviewErr
}

func (s *stubService) RequestMessCut(ctx context.Context, memberID uuid.UUID, fromDate, toDate time.Time, appliedBy model.AppliedBy) (*model.MessCut, error) {
	return s.cutResp, s.cutErr
}

func (s *stubService) CreateClosure(ctx context.Context, fromDate, toDate time.Time, reason string, adminID int64) (*model.MessClosure, error) {
	return s.closureResp, s.closureErr
}

func (s *stubService) ListClosures(ctx context.Context) ([]model.MessClosure, error) {
	return s.closuresResp, s.closuresErr
}

func (s *stubService) IssueCredentialQR(ctx context.Context, memberID uuid.UUID) ([]byte, error) {
	return s.qrResp, s.qrErr
}

func (s *stubService) RotateGlobalEpoch(ctx context.Context) (*service.RotationReport, error) {
	return s.rotateAllResp, s.rotateAllErr
}

func (s *stubService) RotateMemberCredential(ctx context.Context, memberID uuid.UUID) (int, string, error) {
	return s.rotateVersion, "nonce", s.rotateErr
}

type stubTokens struct {
	issueResp *model.StaffToken
	issueRaw  string
	issueErr  error

	revokeErr     error
	reactivateErr error

	listResp []model.StaffToken
	listErr  error
}

func (s *stubTokens) Issue(ctx context.Context, label string, ttl time.Duration) (*model.StaffToken, string, error) {
	return s.issueResp, s.issueRaw, s.issueErr
}

func (s *stubTokens) Revoke(ctx context.Context, id uuid.UUID) error     { return s.revokeErr }
func (s *stubTokens) Reactivate(ctx context.Context, id uuid.UUID) error { return s.reactivateErr }

func (s *stubTokens) List(ctx context.Context) ([]model.StaffToken, error) {
	return s.listResp, s.listErr
}

type stubAuthenticator struct {
	valid string
	token *model.StaffToken
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, bearer string) (*model.StaffToken, error) {
	if bearer == s.valid {
		return s.token, nil
	}
	return nil, token.ErrUnauthenticated
}

const (
	testStaffSecret = "staff-secret"
	testAdminToken  = "admin-token"
)

func newTestRouter(t *testing.T, svc Service, tokens TokenStore) http.Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	staffAuth := middleware.NewStaffAuth(&stubAuthenticator{
		valid: testStaffSecret,
		token: &model.StaffToken{ID: uuid.New(), Label: "test gate", Active: true},
	})
	adminAuth := middleware.NewAdminAuth(testAdminToken)

	return NewHandler(svc, tokens, logger, staffAuth, adminAuth).SetupRouter()
}

func doJSON(t *testing.T, router http.Handler, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestScan_Allowed(t *testing.T) {
	svc := &stubService{
		scanResp: &service.ScanOutcome{
			ScanID: uuid.New(),
			Result: model.ScanAllowed,
			Snapshot: &access.Snapshot{
				ID:            uuid.New(),
				Name:          "Arjun Mehta",
				RollNo:        "B21CS042",
				OverallStatus: access.OverallAllowed,
			},
		},
	}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/scan", testStaffSecret, scanRequest{
		QRPayload: "1|id|0|nonce|sig",
		Meal:      string(model.MealLunch),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp scanResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result != model.ScanAllowed {
		t.Errorf("result = %s, want %s", resp.Result, model.ScanAllowed)
	}
	if resp.Member == nil {
		t.Errorf("allowed scan response must include member snapshot")
	}
}

func TestScan_RequiresStaffToken(t *testing.T) {
	router := newTestRouter(t, &stubService{}, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/scan", "", scanRequest{
		QRPayload: "1|id|0|nonce|sig",
		Meal:      string(model.MealLunch),
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestScan_InvalidCredential(t *testing.T) {
	svc := &stubService{scanErr: qr.ErrInvalidCredential}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/scan", testStaffSecret, scanRequest{
		QRPayload: "tampered",
		Meal:      string(model.MealDinner),
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestScan_BadMeal(t *testing.T) {
	router := newTestRouter(t, &stubService{}, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/scan", testStaffSecret, scanRequest{
		QRPayload: "1|id|0|nonce|sig",
		Meal:      "BRUNCH",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRegisterMember(t *testing.T) {
	svc := &stubService{
		registerResp: &model.Member{
			ID:     uuid.New(),
			Name:   "Priya Sharma",
			RollNo: "B21EE017",
			Status: model.MemberStatusPending,
		},
	}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/register", "", registerRequest{
		TGUserID: 42,
		Name:     "Priya Sharma",
		RollNo:   "B21EE017",
		RoomNo:   "C-101",
		Phone:    "+919812345678",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp memberResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != model.MemberStatusPending {
		t.Errorf("status = %s, want %s", resp.Status, model.MemberStatusPending)
	}
}

func TestRegisterMember_Conflict(t *testing.T) {
	svc := &stubService{registerErr: repository.ErrMemberExists}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/register", "", registerRequest{
		TGUserID: 42,
		Name:     "Priya Sharma",
		RollNo:   "B21EE017",
		RoomNo:   "C-101",
		Phone:    "+919812345678",
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestApproveMember(t *testing.T) {
	svc := &stubService{approveResp: []byte("png-bytes")}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/admin/members/"+uuid.NewString()+"/approve", testAdminToken, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q, want image/png", ct)
	}
}

func TestApproveMember_RequiresAdmin(t *testing.T) {
	router := newTestRouter(t, &stubService{}, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/admin/members/"+uuid.NewString()+"/approve", testStaffSecret, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestApproveMember_NotPending(t *testing.T) {
	svc := &stubService{approveErr: repository.ErrNotPending}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/admin/members/"+uuid.NewString()+"/approve", testAdminToken, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestUploadPayment_Overlap(t *testing.T) {
	svc := &stubService{uploadErr: repository.ErrOverlapViolation}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/payments", "", uploadPaymentRequest{
		MemberID:   uuid.New(),
		CycleStart: "2025-04-01",
		CycleEnd:   "2025-05-01",
		Amount:     3000,
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestUploadPayment_BadDate(t *testing.T) {
	router := newTestRouter(t, &stubService{}, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/payments", "", uploadPaymentRequest{
		MemberID:   uuid.New(),
		CycleStart: "01.04.2025",
		CycleEnd:   "2025-05-01",
		Amount:     3000,
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRequestMessCut_CutoffViolation(t *testing.T) {
	svc := &stubService{cutErr: schedule.ErrCutoffViolation}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/mess-cuts", "", messCutRequest{
		MemberID: uuid.New(),
		FromDate: "2025-04-08",
		ToDate:   "2025-04-08",
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestListClosures_Empty(t *testing.T) {
	router := newTestRouter(t, &stubService{}, &stubTokens{})

	rec := doJSON(t, router, http.MethodGet, "/api/admin/closures", testAdminToken, nil)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestIssueStaffToken(t *testing.T) {
	tokens := &stubTokens{
		issueResp: &model.StaffToken{ID: uuid.New(), Label: "kitchen tablet"},
		issueRaw:  "raw-secret-value",
	}
	router := newTestRouter(t, &stubService{}, tokens)

	rec := doJSON(t, router, http.MethodPost, "/api/admin/staff-tokens", testAdminToken, issueTokenRequest{
		Label:      "kitchen tablet",
		TTLMinutes: 60,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp issueTokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Secret != "raw-secret-value" {
		t.Errorf("secret = %q, want raw secret in issue response", resp.Secret)
	}
}

func TestReactivateStaffToken_Expired(t *testing.T) {
	tokens := &stubTokens{reactivateErr: token.ErrAlreadyExpired}
	router := newTestRouter(t, &stubService{}, tokens)

	rec := doJSON(t, router, http.MethodPost, "/api/admin/staff-tokens/"+uuid.NewString()+"/reactivate", testAdminToken, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestMemberQR_NotFound(t *testing.T) {
	svc := &stubService{qrErr: repository.ErrMemberNotFound}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodGet, "/api/admin/members/"+uuid.NewString()+"/qr", testAdminToken, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRotateGlobalEpoch(t *testing.T) {
	svc := &stubService{
		rotateAllResp: &service.RotationReport{NewEpoch: 3, Rotated: []uuid.UUID{uuid.New()}},
	}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodPost, "/api/admin/credentials/rotate", testAdminToken, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp service.RotationReport
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.NewEpoch != 3 {
		t.Errorf("new epoch = %d, want 3", resp.NewEpoch)
	}
}

func TestSnapshot_NotFound(t *testing.T) {
	svc := &stubService{snapshotErr: repository.ErrMemberNotFound}
	router := newTestRouter(t, svc, &stubTokens{})

	rec := doJSON(t, router, http.MethodGet, "/api/members/"+uuid.NewString()+"/snapshot", testStaffSecret, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
