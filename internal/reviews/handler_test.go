package reviews

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/notifications"
)

type fakeReviews struct {
	hasAssignment bool
	completed     *SaveParams
}

func (f *fakeReviews) ApproverHoldsRole(context.Context, uuid.UUID) (bool, error) { return true, nil }

func (f *fakeReviews) Assign(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (*models.SessionAssignment, error) {
	return nil, nil
}

func (f *fakeReviews) Cancel(context.Context, uuid.UUID) error { return nil }

func (f *fakeReviews) ListForSession(context.Context, uuid.UUID) ([]models.SessionAssignment, error) {
	return nil, nil
}

func (f *fakeReviews) HasActiveAssignment(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return f.hasAssignment, nil
}

func (f *fakeReviews) Save(context.Context, SaveParams) (*models.SessionReview, error) {
	return nil, nil
}

func (f *fakeReviews) Complete(_ context.Context, p SaveParams) (*models.SessionReview, error) {
	f.completed = &p
	now := time.Now()
	return &models.SessionReview{
		ID:          uuid.New(),
		SessionID:   p.SessionID,
		ReviewerID:  p.ReviewerID,
		Status:      models.ReviewCompleted,
		Decision:    p.Decision,
		Score:       p.Score,
		CompletedAt: &now,
	}, nil
}

func (f *fakeReviews) GetForReviewer(context.Context, uuid.UUID, uuid.UUID) (*models.SessionReview, error) {
	return nil, ErrNotFound
}

func (f *fakeReviews) ListReviews(context.Context, uuid.UUID) ([]models.SessionReview, error) {
	return nil, nil
}

func (f *fakeReviews) GetReview(context.Context, uuid.UUID) (*models.SessionReview, error) {
	return nil, ErrNotFound
}

func (f *fakeReviews) AddComment(context.Context, uuid.UUID, uuid.UUID, string, bool) (*models.ReviewComment, error) {
	return nil, nil
}

func (f *fakeReviews) ListComments(context.Context, uuid.UUID) ([]models.ReviewComment, error) {
	return nil, nil
}

func (f *fakeReviews) Dashboard(context.Context, *uuid.UUID) (*DashboardStats, error) {
	return nil, nil
}

type fakeSessions struct {
	session   *models.Session
	newStatus models.SessionStatus
}

func (f *fakeSessions) GetByID(context.Context, uuid.UUID) (*models.Session, error) {
	return f.session, nil
}

func (f *fakeSessions) SetStatus(_ context.Context, _ uuid.UUID, status models.SessionStatus) error {
	f.newStatus = status
	return nil
}

type fakeNotifier struct {
	notified []notifications.CreateParams
}

func (f *fakeNotifier) Notify(_ context.Context, p notifications.CreateParams) (*models.Notification, error) {
	f.notified = append(f.notified, p)
	return &models.Notification{ID: uuid.New()}, nil
}

func newRouter(h *Handler, claims *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.ContextClaims, claims) })
	r.POST("/approver/sessions/:id/review/complete", h.Complete)
	return r
}

func completeRequest(t *testing.T, r *gin.Engine, sessionID uuid.UUID, decision string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"decision":"` + decision + `","speaker_feedback":"Thanks for the proposal."}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/approver/sessions/"+sessionID.String()+"/review/complete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCompleteApproveDrivesSessionStatus(t *testing.T) {
	speakerID := uuid.New()
	sessionID := uuid.New()
	repo := &fakeReviews{hasAssignment: true}
	sessionRepo := &fakeSessions{session: &models.Session{ID: sessionID, PrimarySpeakerID: speakerID, Status: models.SessionUnderReview}}
	notifier := &fakeNotifier{}
	h := NewHandler(repo, sessionRepo, notifier, zap.NewNop())
	r := newRouter(h, &auth.Claims{UserID: uuid.New(), Roles: []string{models.RoleManager}})

	w := completeRequest(t, r, sessionID, models.DecisionApprove)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if repo.completed == nil || repo.completed.Decision != models.DecisionApprove {
		t.Fatalf("completed = %+v", repo.completed)
	}
	if sessionRepo.newStatus != models.SessionApproved {
		t.Errorf("session status = %q, want approved", sessionRepo.newStatus)
	}

	var body struct {
		Data struct {
			SessionStatus models.SessionStatus `json:"session_status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.SessionStatus != models.SessionApproved {
		t.Errorf("session_status = %q, want approved", body.Data.SessionStatus)
	}

	if len(notifier.notified) != 1 {
		t.Fatalf("notified %d times, want 1", len(notifier.notified))
	}
	n := notifier.notified[0]
	if n.UserID != speakerID || n.Type != models.NotifyReviewUpdate || n.Priority != models.PriorityHigh {
		t.Errorf("notification = %+v", n)
	}
}

func TestCompleteRejectDrivesSessionStatus(t *testing.T) {
	sessionID := uuid.New()
	sessionRepo := &fakeSessions{session: &models.Session{ID: sessionID, PrimarySpeakerID: uuid.New(), Status: models.SessionUnderReview}}
	h := NewHandler(&fakeReviews{hasAssignment: true}, sessionRepo, &fakeNotifier{}, zap.NewNop())
	r := newRouter(h, &auth.Claims{UserID: uuid.New(), Roles: []string{models.RoleManager}})

	w := completeRequest(t, r, sessionID, models.DecisionReject)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if sessionRepo.newStatus != models.SessionRejected {
		t.Errorf("session status = %q, want rejected", sessionRepo.newStatus)
	}
}

func TestCompleteRequiresDecision(t *testing.T) {
	sessionID := uuid.New()
	sessionRepo := &fakeSessions{session: &models.Session{ID: sessionID, Status: models.SessionUnderReview}}
	h := NewHandler(&fakeReviews{hasAssignment: true}, sessionRepo, &fakeNotifier{}, zap.NewNop())
	r := newRouter(h, &auth.Claims{UserID: uuid.New(), Roles: []string{models.RoleManager}})

	w := completeRequest(t, r, sessionID, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if sessionRepo.newStatus != "" {
		t.Errorf("session status changed to %q on a rejected request", sessionRepo.newStatus)
	}
}

func TestCompleteForbiddenWithoutAssignment(t *testing.T) {
	sessionID := uuid.New()
	h := NewHandler(&fakeReviews{hasAssignment: false}, &fakeSessions{}, &fakeNotifier{}, zap.NewNop())
	r := newRouter(h, &auth.Claims{UserID: uuid.New(), Roles: []string{models.RoleManager}})

	w := completeRequest(t, r, sessionID, models.DecisionApprove)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
