package files

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/pkg/storage"
)

// fakeVersions keeps the version chain in memory: a new upload becomes the
// current version and retires every previous one.
type fakeVersions struct {
	files []*models.SessionFile
}

func (f *fakeVersions) CreateVersion(_ context.Context, p CreateVersionParams) (*models.SessionFile, error) {
	version := 1
	for _, existing := range f.files {
		if existing.SessionID == p.SessionID {
			existing.IsCurrentVersion = false
			if existing.Version >= version {
				version = existing.Version + 1
			}
		}
	}
	file := &models.SessionFile{
		ID:               p.ID,
		SessionID:        p.SessionID,
		UploadedBy:       p.UploadedBy,
		OriginalFilename: p.OriginalFilename,
		StorageKey:       p.StorageKey,
		ContentType:      p.ContentType,
		SizeBytes:        p.SizeBytes,
		SHA256:           p.SHA256,
		Version:          version,
		IsCurrentVersion: true,
		UploadedAt:       time.Now(),
	}
	f.files = append(f.files, file)
	return file, nil
}

func (f *fakeVersions) GetByID(_ context.Context, id uuid.UUID) (*models.SessionFile, error) {
	for _, file := range f.files {
		if file.ID == id {
			return file, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeVersions) GetCurrent(_ context.Context, sessionID uuid.UUID) (*models.SessionFile, error) {
	for _, file := range f.files {
		if file.SessionID == sessionID && file.IsCurrentVersion {
			return file, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeVersions) ListVersions(_ context.Context, sessionID uuid.UUID) ([]models.SessionFile, error) {
	var list []models.SessionFile
	for _, file := range f.files {
		if file.SessionID == sessionID {
			list = append(list, *file)
		}
	}
	return list, nil
}

func (f *fakeVersions) Delete(_ context.Context, id uuid.UUID) (*models.SessionFile, error) {
	for i, file := range f.files {
		if file.ID == id {
			f.files = append(f.files[:i], f.files[i+1:]...)
			return file, nil
		}
	}
	return nil, ErrNotFound
}

type sessionStub struct {
	session *models.Session
}

func (s *sessionStub) GetByID(context.Context, uuid.UUID) (*models.Session, error) {
	return s.session, nil
}

func newTestHandler(t *testing.T, repo *fakeVersions, session *models.Session) *Handler {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	return NewHandler(repo, &sessionStub{session: session}, store, 1, []string{".pdf"}, zap.NewNop())
}

func newRouter(h *Handler, claims *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.ContextClaims, claims) })
	r.POST("/sessions/:id/files", h.Upload)
	return r
}

func upload(t *testing.T, r *gin.Engine, sessionID uuid.UUID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID.String()+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)
	return w
}

func TestUploadKeepsOneCurrentVersion(t *testing.T) {
	speakerID := uuid.New()
	session := &models.Session{ID: uuid.New(), PrimarySpeakerID: speakerID, Status: models.SessionDraft}
	repo := &fakeVersions{}
	h := newTestHandler(t, repo, session)
	r := newRouter(h, &auth.Claims{UserID: speakerID, Roles: []string{models.RoleSpeaker}})

	if w := upload(t, r, session.ID, "slides.pdf", []byte("v1")); w.Code != http.StatusCreated {
		t.Fatalf("first upload status = %d: %s", w.Code, w.Body.String())
	}
	w := upload(t, r, session.ID, "slides-final.pdf", []byte("v2"))
	if w.Code != http.StatusCreated {
		t.Fatalf("second upload status = %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data models.SessionFile `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.Version != 2 || !body.Data.IsCurrentVersion {
		t.Errorf("second upload = version %d current %v, want version 2 current", body.Data.Version, body.Data.IsCurrentVersion)
	}

	current := 0
	for _, f := range repo.files {
		if f.IsCurrentVersion {
			current++
			if f.Version != 2 {
				t.Errorf("current version = %d, want 2", f.Version)
			}
		}
	}
	if current != 1 {
		t.Errorf("current versions = %d, want exactly 1", current)
	}
}

func TestUploadRecordsChecksumAndSize(t *testing.T) {
	speakerID := uuid.New()
	session := &models.Session{ID: uuid.New(), PrimarySpeakerID: speakerID, Status: models.SessionDraft}
	repo := &fakeVersions{}
	h := newTestHandler(t, repo, session)
	r := newRouter(h, &auth.Claims{UserID: speakerID, Roles: []string{models.RoleSpeaker}})

	content := []byte("deterministic body")
	if w := upload(t, r, session.ID, "slides.pdf", content); w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	f := repo.files[0]
	if f.SizeBytes != int64(len(content)) {
		t.Errorf("size = %d, want %d", f.SizeBytes, len(content))
	}
	if len(f.SHA256) != 64 {
		t.Errorf("sha256 = %q, want a 64-char hex digest", f.SHA256)
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	speakerID := uuid.New()
	session := &models.Session{ID: uuid.New(), PrimarySpeakerID: speakerID, Status: models.SessionDraft}
	h := newTestHandler(t, &fakeVersions{}, session)
	r := newRouter(h, &auth.Claims{UserID: speakerID, Roles: []string{models.RoleSpeaker}})

	w := upload(t, r, session.ID, "malware.exe", []byte("nope"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
