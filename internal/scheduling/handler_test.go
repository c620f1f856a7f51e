package scheduling

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

type fakeStore struct {
	placeErr error
	placed   *models.SessionSchedule
	warnings []SpeakerWarning
}

func (f *fakeStore) CreateRoom(context.Context, string, int, string, json.RawMessage) (*models.Room, error) {
	return nil, nil
}

func (f *fakeStore) ListRooms(context.Context) ([]models.Room, error) { return nil, nil }

func (f *fakeStore) Place(_ context.Context, p PlaceParams) (*models.SessionSchedule, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = &models.SessionSchedule{
		ID:        uuid.New(),
		SessionID: p.SessionID,
		RoomID:    p.RoomID,
		Day:       p.Day,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Status:    models.ScheduleTentative,
	}
	return f.placed, nil
}

func (f *fakeStore) SpeakerConflicts(context.Context, PlaceParams) ([]SpeakerWarning, error) {
	return f.warnings, nil
}

func (f *fakeStore) SetStatus(context.Context, uuid.UUID, string) (*models.SessionSchedule, error) {
	return nil, ErrNotFound
}

func (f *fakeStore) GetForSession(context.Context, uuid.UUID) (*models.SessionSchedule, error) {
	return nil, ErrNotFound
}

func (f *fakeStore) List(context.Context, *time.Time, *uuid.UUID) ([]models.SessionSchedule, error) {
	return nil, nil
}

type fakeSessions struct {
	session *models.Session
}

func (f *fakeSessions) GetByID(context.Context, uuid.UUID) (*models.Session, error) {
	return f.session, nil
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
	r.POST("/approver/sessions/:id/schedule", h.Place)
	return r
}

func placeRequest(t *testing.T, r *gin.Engine, sessionID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"room_id":"` + uuid.NewString() + `","day":"2026-09-01","start_time":"09:00","end_time":"10:00"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/approver/sessions/"+sessionID.String()+"/schedule", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func managerClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Roles: []string{models.RoleManager}}
}

func TestPlaceConflictAnswers409WithSessionID(t *testing.T) {
	conflicting := uuid.New()
	store := &fakeStore{placeErr: &ConflictError{SessionID: conflicting}}
	sessionID := uuid.New()
	h := NewHandler(store, &fakeSessions{session: &models.Session{ID: sessionID, Status: models.SessionApproved}}, &fakeNotifier{}, zap.NewNop())
	r := newRouter(h, managerClaims())

	w := placeRequest(t, r, sessionID)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(body.Error, conflicting.String()) {
		t.Errorf("error %q does not carry the conflicting session id", body.Error)
	}
}

func TestPlaceRequiresApprovedSession(t *testing.T) {
	sessionID := uuid.New()
	h := NewHandler(&fakeStore{}, &fakeSessions{session: &models.Session{ID: sessionID, Status: models.SessionSubmitted}}, &fakeNotifier{}, zap.NewNop())
	r := newRouter(h, managerClaims())

	w := placeRequest(t, r, sessionID)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPlaceSchedulesAndNotifiesSpeaker(t *testing.T) {
	speakerID := uuid.New()
	sessionID := uuid.New()
	store := &fakeStore{warnings: []SpeakerWarning{{SpeakerID: speakerID, OtherSessionID: uuid.New()}}}
	notifier := &fakeNotifier{}
	h := NewHandler(store, &fakeSessions{session: &models.Session{ID: sessionID, PrimarySpeakerID: speakerID, Status: models.SessionApproved}}, notifier, zap.NewNop())
	r := newRouter(h, managerClaims())

	w := placeRequest(t, r, sessionID)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if store.placed == nil || store.placed.SessionID != sessionID {
		t.Fatal("expected the session to be placed")
	}

	var body struct {
		Data struct {
			Warnings []SpeakerWarning `json:"speaker_warnings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data.Warnings) != 1 {
		t.Errorf("warnings = %v, want the double-booking warning", body.Data.Warnings)
	}

	if len(notifier.notified) != 1 {
		t.Fatalf("notified %d times, want 1", len(notifier.notified))
	}
	n := notifier.notified[0]
	if n.UserID != speakerID || n.Type != models.NotifyScheduleUpdate {
		t.Errorf("notification = %+v", n)
	}
}
