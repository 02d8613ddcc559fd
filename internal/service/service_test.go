package service_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"

	"startlist/internal/api/api"
	"startlist/internal/dto"
	"startlist/internal/service"
	"startlist/internal/store"
	"startlist/internal/uploads"
)

type fakeNotifier struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeNotifier) Publish(message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, message)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type envelope struct {
	Status string          `json:"status"`
	Error  *dto.Error      `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type testServer struct {
	app      *ginext.Engine
	notifier *fakeNotifier
	uploads  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "state.json")
	err := os.WriteFile(snapshotPath, []byte(`{"users":[],"events":[],"registrations":[]}`), 0o644)
	require.NoError(t, err)

	log := zerolog.Nop()
	st, err := store.New(snapshotPath, &log)
	require.NoError(t, err)

	uploadsDir := filepath.Join(dir, "uploads")
	files, err := uploads.New(uploadsDir, "/uploads")
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	svc := service.NewService(st, files, &log, notifier)
	app := api.NewRouters(&api.Routers{Service: svc, UploadsDir: files.Dir()})

	return &testServer{app: app, notifier: notifier, uploads: uploadsDir}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.app.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestCreateAndListUsers(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/users", map[string]any{
		"name":   "Аня",
		"gender": "female",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeData[dto.UserResponse](t, env)
	require.Equal(t, "Аня", created.Name)
	require.Equal(t, "female", created.Gender)
	require.Positive(t, created.ID)

	w, env = ts.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decodeData[[]dto.UserResponse](t, env)
	require.Len(t, users, 1)
	require.Equal(t, created.ID, users[0].ID)
}

func TestCreateUser_GenderDefaults(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/users", map[string]any{"name": "Женя"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeData[dto.UserResponse](t, env)
	require.Equal(t, "male", created.Gender)
}

func TestCreateUser_ValidationError(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/users", map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	require.Equal(t, dto.FieldIncorrect, env.Error.Code)

	w, env = ts.do(t, http.MethodPost, "/api/users", map[string]any{"name": "X", "gender": "other"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, dto.FieldIncorrect, env.Error.Code)
}

func TestUpdateUser_NotFound(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPut, "/api/users/99", map[string]any{"name": "Вася"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, dto.UserNotFound, env.Error.Code)
}

func TestEventCRUD(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/events", map[string]any{
		"name":     "ММ",
		"date":     "01.03",
		"location": "Минск",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeData[dto.EventResponse](t, env)
	require.Equal(t, "01.03", created.Date)

	w, env = ts.do(t, http.MethodPut, "/api/events/"+itoa(created.ID), map[string]any{
		"name": "ММ 2.0",
		"date": "02.03",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeData[dto.EventResponse](t, env)
	require.Equal(t, "ММ 2.0", updated.Name)
	require.Equal(t, "02.03", updated.Date)

	w, _ = ts.do(t, http.MethodDelete, "/api/events/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(t, http.MethodDelete, "/api/events/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, dto.EventNotFound, env.Error.Code)
}

func TestCreateEvent_BadDate(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/events", map[string]any{
		"name": "ММ",
		"date": "2024-03-01",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, dto.FieldIncorrect, env.Error.Code)
}

func TestListEvents_Sorted(t *testing.T) {
	ts := newTestServer(t)

	for _, date := range []string{"07.03", "01.03", "05.03"} {
		w, _ := ts.do(t, http.MethodPost, "/api/events", map[string]any{"name": "race " + date, "date": date})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := ts.do(t, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decodeData[[]dto.EventResponse](t, env)
	require.Len(t, events, 3)
	require.Equal(t, "01.03", events[0].Date)
	require.Equal(t, "05.03", events[1].Date)
	require.Equal(t, "07.03", events[2].Date)
}

func TestRegistrationUpsertFlow(t *testing.T) {
	ts := newTestServer(t)

	_, env := ts.do(t, http.MethodPost, "/api/users", map[string]any{"name": "Андрей"})
	user := decodeData[dto.UserResponse](t, env)
	_, env = ts.do(t, http.MethodPost, "/api/events", map[string]any{"name": "ММ", "date": "01.03"})
	event := decodeData[dto.EventResponse](t, env)

	w, env := ts.do(t, http.MethodPost, "/api/registrations", map[string]any{
		"user_id":  user.ID,
		"event_id": event.ID,
		"selected": "black",
	})
	require.Equal(t, http.StatusOK, w.Code)
	reg := decodeData[dto.RegistrationResponse](t, env)
	require.Equal(t, "black", reg.Selected)

	w, env = ts.do(t, http.MethodPost, "/api/registrations", map[string]any{
		"user_id":  user.ID,
		"event_id": event.ID,
		"selected": "green",
	})
	require.Equal(t, http.StatusOK, w.Code)
	second := decodeData[dto.RegistrationResponse](t, env)
	require.Equal(t, reg.ID, second.ID)
	require.Equal(t, "green", second.Selected)

	w, env = ts.do(t, http.MethodGet, "/api/registrations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	regs := decodeData[[]dto.RegistrationResponse](t, env)
	require.Len(t, regs, 1)
	require.Equal(t, "green", regs[0].Selected)

	require.Equal(t, 2, ts.notifier.count(), "every upsert feeds the change notifier")
}

func TestRegistration_BadSelected(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/registrations", map[string]any{
		"user_id":  1,
		"event_id": 1,
		"selected": "purple",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, dto.FieldIncorrect, env.Error.Code)
	require.Equal(t, 0, ts.notifier.count())
}

func TestDeleteUser_CascadesOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	_, env := ts.do(t, http.MethodPost, "/api/users", map[string]any{"name": "Ира"})
	user := decodeData[dto.UserResponse](t, env)
	_, env = ts.do(t, http.MethodPost, "/api/events", map[string]any{"name": "КМ", "date": "05.03"})
	event := decodeData[dto.EventResponse](t, env)

	w, _ := ts.do(t, http.MethodPost, "/api/registrations", map[string]any{
		"user_id":  user.ID,
		"event_id": event.ID,
		"selected": "black",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodDelete, "/api/users/"+itoa(user.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(t, http.MethodGet, "/api/registrations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	regs := decodeData[[]dto.RegistrationResponse](t, env)
	require.Empty(t, regs)
}

func uploadRequest(t *testing.T, path, field, filename string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadUserAvatar(t *testing.T) {
	ts := newTestServer(t)

	_, env := ts.do(t, http.MethodPost, "/api/users", map[string]any{"name": "Саша"})
	user := decodeData[dto.UserResponse](t, env)

	req := uploadRequest(t, "/api/users/"+itoa(user.ID)+"/avatar", "avatar", "me.png")
	w := httptest.NewRecorder()
	ts.app.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var uploadEnv envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploadEnv))
	updated := decodeData[dto.UserResponse](t, uploadEnv)
	require.True(t, strings.HasPrefix(updated.AvatarURL, "/uploads/avatar-"))
	require.True(t, strings.HasSuffix(updated.AvatarURL, ".png"))

	saved := filepath.Join(ts.uploads, filepath.Base(updated.AvatarURL))
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	require.Equal(t, "fake image bytes", string(data))
}

func TestUploadEventLogo_BadExtension(t *testing.T) {
	ts := newTestServer(t)

	_, env := ts.do(t, http.MethodPost, "/api/events", map[string]any{"name": "БН", "date": "03.03"})
	event := decodeData[dto.EventResponse](t, env)

	req := uploadRequest(t, "/api/events/"+itoa(event.ID)+"/logo", "logo", "logo.exe")
	w := httptest.NewRecorder()
	ts.app.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadAvatar_MissingFile(t *testing.T) {
	ts := newTestServer(t)

	_, env := ts.do(t, http.MethodPost, "/api/users", map[string]any{"name": "Вася"})
	user := decodeData[dto.UserResponse](t, env)

	req := httptest.NewRequest(http.MethodPost, "/api/users/"+itoa(user.ID)+"/avatar", nil)
	w := httptest.NewRecorder()
	ts.app.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errEnv envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errEnv))
	require.Equal(t, dto.FileMissing, errEnv.Error.Code)
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
