package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/models"
)

type fakeStore struct {
	sessions  map[uuid.UUID]*models.Session
	submitErr error
}

func (f *fakeStore) ListTypes(context.Context) ([]models.SessionType, error) { return nil, nil }

func (f *fakeStore) List(context.Context, ListFilter) ([]models.Session, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) Create(context.Context, CreateParams) (*models.Session, error) {
	return nil, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) Update(context.Context, uuid.UUID, string, string, string, *uuid.UUID) (*models.Session, error) {
	return nil, nil
}

func (f *fakeStore) Delete(context.Context, uuid.UUID) error { return nil }

func (f *fakeStore) SetSpeakers(context.Context, uuid.UUID, []SpeakerInput) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) Submit(_ context.Context, id uuid.UUID) (*models.Session, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	s := *f.sessions[id]
	s.Status = models.SessionSubmitted
	return &s, nil
}

func (f *fakeStore) Resubmit(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s := *f.sessions[id]
	s.Status = models.SessionSubmitted
	return &s, nil
}

func (f *fakeStore) ReviewSummary(context.Context, uuid.UUID) (*models.ReviewSummary, error) {
	return &models.ReviewSummary{Recommendation: "pending"}, nil
}

func newRouter(h *Handler, claims *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.ContextClaims, claims) })
	r.POST("/sessions/:id/submit", h.Submit)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func postSubmit(t *testing.T, r *gin.Engine, id uuid.UUID) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id.String()+"/submit", nil)
	r.ServeHTTP(w, req)
	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return w, body
}

func TestSubmitRequiresCompleteSession(t *testing.T) {
	speakerID := uuid.New()
	session := &models.Session{ID: uuid.New(), PrimarySpeakerID: speakerID, Status: models.SessionDraft}
	store := &fakeStore{
		sessions:  map[uuid.UUID]*models.Session{session.ID: session},
		submitErr: ErrNotSubmittable,
	}
	h := NewHandler(store, zap.NewNop())
	r := newRouter(h, &auth.Claims{UserID: speakerID, Roles: []string{models.RoleSpeaker}})

	w, body := postSubmit(t, r, session.ID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body.Error != "submission requires a title, a description and an uploaded file" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	speakerID := uuid.New()
	session := &models.Session{ID: uuid.New(), PrimarySpeakerID: speakerID, Status: models.SessionSubmitted}
	store := &fakeStore{sessions: map[uuid.UUID]*models.Session{session.ID: session}}
	h := NewHandler(store, zap.NewNop())
	r := newRouter(h, &auth.Claims{UserID: speakerID, Roles: []string{models.RoleSpeaker}})

	w, _ := postSubmit(t, r, session.ID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSubmitMovesDraftToSubmitted(t *testing.T) {
	speakerID := uuid.New()
	session := &models.Session{ID: uuid.New(), Title: "Fuzzing Go", PrimarySpeakerID: speakerID, Status: models.SessionDraft}
	store := &fakeStore{sessions: map[uuid.UUID]*models.Session{session.ID: session}}
	h := NewHandler(store, zap.NewNop())
	r := newRouter(h, &auth.Claims{UserID: speakerID, Roles: []string{models.RoleSpeaker}})

	w, body := postSubmit(t, r, session.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var got models.Session
	if err := json.Unmarshal(body.Data, &got); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if got.Status != models.SessionSubmitted {
		t.Errorf("status = %q, want submitted", got.Status)
	}
}

func TestSubmitForbiddenForOtherSpeakers(t *testing.T) {
	session := &models.Session{ID: uuid.New(), PrimarySpeakerID: uuid.New(), Status: models.SessionDraft}
	store := &fakeStore{sessions: map[uuid.UUID]*models.Session{session.ID: session}}
	h := NewHandler(store, zap.NewNop())
	r := newRouter(h, &auth.Claims{UserID: uuid.New(), Roles: []string{models.RoleSpeaker}})

	w, _ := postSubmit(t, r, session.ID)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
