package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kmit-fdms/fdms/internal/api/handlers"
	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/services"
	"github.com/kmit-fdms/fdms/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type stubProfiles struct {
	created  *models.Profile
	uploads  []services.Upload
	bodies   map[string][]byte
	patch    models.ProfilePatch
	deleted  string
	byNameQ  *string
	notFound bool
}

func (s *stubProfiles) Create(_ context.Context, p *models.Profile, uploads []services.Upload) (*models.Profile, error) {
	if p.PersonalDetails.Name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, "ProfileService.Create", "missing required fields: name", nil)
	}
	s.bodies = map[string][]byte{}
	for _, u := range uploads {
		b, _ := io.ReadAll(u.Body)
		s.bodies[u.Field] = b
	}
	p.ID = primitive.NewObjectID()
	s.created = p
	s.uploads = uploads
	return p, nil
}

func (s *stubProfiles) List(context.Context) ([]models.Profile, error) {
	return []models.Profile{{PersonalDetails: models.PersonalDetails{Name: "A"}}}, nil
}

func (s *stubProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, "ProfileService.GetByID", "invalid profile id", err)
	}
	if s.notFound {
		return nil, utils.E(utils.CodeNotFound, "ProfileService.GetByID", "profile not found", utils.ErrNotFound)
	}
	return &models.Profile{}, nil
}

func (s *stubProfiles) FindByName(_ context.Context, name string) (*models.Profile, error) {
	s.byNameQ = &name
	if strings.TrimSpace(name) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, "ProfileService.FindByName", "name is required", nil)
	}
	return &models.Profile{PersonalDetails: models.PersonalDetails{Name: name}}, nil
}

func (s *stubProfiles) Update(_ context.Context, id string, patch models.ProfilePatch) (*models.Profile, error) {
	s.patch = patch
	return &models.Profile{}, nil
}

func (s *stubProfiles) Delete(_ context.Context, id string) error {
	if s.notFound {
		return utils.E(utils.CodeNotFound, "ProfileService.Delete", "profile not found", utils.ErrNotFound)
	}
	s.deleted = id
	return nil
}

func (s *stubProfiles) AttachDocuments(_ context.Context, id string, uploads []services.Upload) (*models.Profile, error) {
	s.uploads = uploads
	return &models.Profile{}, nil
}

func (s *stubProfiles) ListDocuments(context.Context, string) ([]models.ProfileDocument, error) {
	return []models.ProfileDocument{}, nil
}

type stubAccounts struct{}

func (stubAccounts) Signup(_ context.Context, in services.SignupInput) (*services.AuthResult, error) {
	if in.Email == "taken@kmit.in" {
		return &services.AuthResult{Success: false, Message: "User already exists!"}, nil
	}
	return &services.AuthResult{Success: true, Message: "Signup successful!"}, nil
}

func (stubAccounts) Login(_ context.Context, in services.LoginInput) (*services.AuthResult, error) {
	if in.Password != "pw" {
		return &services.AuthResult{Success: false, Message: "Invalid credentials"}, nil
	}
	return &services.AuthResult{Success: true, Message: "Login successful as Admin", Role: "Admin"}, nil
}

func (stubAccounts) List(context.Context) ([]models.Account, error) {
	return []models.Account{{Name: "A", Password: "hidden"}}, nil
}

type stubContacts struct{}

func (stubContacts) Submit(_ context.Context, m *models.ContactMessage) (*models.ContactMessage, error) {
	if m.Feedback == "" {
		return nil, utils.E(utils.CodeInvalidArgument, "ContactService.Submit", "fullName, email and feedback are required", nil)
	}
	m.Date = time.Now()
	return m, nil
}

type stubChat struct{}

func (stubChat) Ask(_ context.Context, sessionID, message string) (*services.ChatReply, error) {
	if message == "" {
		return nil, utils.E(utils.CodeInvalidArgument, "ChatService.Ask", "message is required", nil)
	}
	return &services.ChatReply{SessionID: "sess", Reply: "echo: " + message, Source: models.SourceFallback}, nil
}

func (stubChat) Logs(context.Context, string, int) ([]models.ChatLog, error) {
	return nil, utils.E(utils.CodeUnavailable, "ChatService.Logs", "chat log store is not configured", nil)
}

func newTestEngine(p *stubProfiles, authRequired bool) *gin.Engine {
	return newTestEngineWithLimit(p, authRequired, 0)
}

func newTestEngineWithLimit(p *stubProfiles, authRequired bool, maxUpload int64) *gin.Engine {
	r := gin.New()
	RegisterRoutes(r, Deps{
		Profile:      handlers.NewProfileHandler(p, maxUpload),
		Account:      handlers.NewAccountHandler(stubAccounts{}),
		Contact:      handlers.NewContactHandler(stubContacts{}),
		Chat:         handlers.NewChatHandler(stubChat{}),
		WS:           handlers.NewWSHandler(stubChat{}, quietLogger(), nil),
		AuthRequired: authRequired,
		JWTSecret:    "secret",
	})
	return r
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func serve(r http.Handler, method, path string, body io.Reader, contentType string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestPing(t *testing.T) {
	w := serve(newTestEngine(&stubProfiles{}, false), http.MethodGet, "/ping", nil, "")
	if w.Code != http.StatusOK || decode(t, w)["message"] != "pong" {
		t.Errorf("ping = %d %s", w.Code, w.Body.String())
	}
}

func TestCreateProfileJSON(t *testing.T) {
	p := &stubProfiles{}
	r := newTestEngine(p, false)

	w := serve(r, http.MethodPost, "/profiles", strings.NewReader(`{"personalDetails":{"name":"Anitha","email":"a@kmit.in"}}`), "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if p.created.PersonalDetails.Email != "a@kmit.in" {
		t.Errorf("created = %+v", p.created.PersonalDetails)
	}

	w = serve(r, http.MethodPost, "/profiles", strings.NewReader(`{"personalDetails":{}}`), "application/json")
	if w.Code != http.StatusBadRequest || decode(t, w)["code"] != string(utils.CodeInvalidArgument) {
		t.Errorf("missing name = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPost, "/profiles", strings.NewReader(`{not json`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d", w.Code)
	}
}

func multipartBody(t *testing.T, data string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != "" {
		if err := mw.WriteField("data", data); err != nil {
			t.Fatal(err)
		}
	}
	for field, content := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+field+`.pdf"`)
		h.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestCreateProfileMultipart(t *testing.T) {
	p := &stubProfiles{}
	r := newTestEngine(p, false)

	body, ct := multipartBody(t, `{"personalDetails":{"name":"Anitha"}}`, map[string][]byte{
		"ugCertificate": []byte("%PDF-1.4 ug"),
		"panDoc":        []byte("%PDF-1.4 pan"),
	})
	w := serve(r, http.MethodPost, "/profiles", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(p.uploads) != 2 {
		t.Fatalf("uploads = %d", len(p.uploads))
	}
	if string(p.bodies["ugCertificate"]) != "%PDF-1.4 ug" {
		t.Errorf("ug body = %q", p.bodies["ugCertificate"])
	}
	for _, u := range p.uploads {
		if u.ContentType != "application/pdf" || u.Size == 0 {
			t.Errorf("upload = %+v", u)
		}
	}
}

func TestCreateProfileMultipartErrors(t *testing.T) {
	r := newTestEngine(&stubProfiles{}, false)

	body, ct := multipartBody(t, "", map[string][]byte{"certificate": []byte("%PDF-")})
	if w := serve(r, http.MethodPost, "/profiles", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("missing data = %d", w.Code)
	}

	body, ct = multipartBody(t, `{"personalDetails":{"name":"A"}}`, map[string][]byte{"photo": []byte("%PDF-")})
	if w := serve(r, http.MethodPost, "/profiles", body, ct); w.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d", w.Code)
	}
}

func TestCreateProfileOversizedBodyStopsEarly(t *testing.T) {
	const maxUpload = 1 << 10
	p := &stubProfiles{}
	r := newTestEngineWithLimit(p, false, maxUpload)

	huge := append([]byte("%PDF-1.4 "), bytes.Repeat([]byte("x"), int(services.MaxFormBytes(maxUpload))+1)...)
	body, ct := multipartBody(t, `{"personalDetails":{"name":"Anitha"}}`, map[string][]byte{"certificate": huge})

	w := serve(r, http.MethodPost, "/profiles", body, ct)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if msg, _ := decode(t, w)["message"].(string); !strings.Contains(msg, "too large") {
		t.Errorf("message = %q", msg)
	}
	if p.created != nil {
		t.Error("service reached with an oversized body")
	}

	// the same limit still admits a full set of maximum-size files
	files := map[string][]byte{}
	for _, field := range []string{"certificate", "tenthCertificate", "interCertificate", "ugCertificate", "pgCertificate", "phdCertificate", "panDoc", "aadharDoc"} {
		files[field] = append([]byte("%PDF-1.4 "), bytes.Repeat([]byte("y"), maxUpload-9)...)
	}
	body, ct = multipartBody(t, `{"personalDetails":{"name":"Anitha"}}`, files)
	if w := serve(r, http.MethodPost, "/profiles", body, ct); w.Code != http.StatusCreated {
		t.Errorf("full form status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestProfileReads(t *testing.T) {
	p := &stubProfiles{}
	r := newTestEngine(p, false)

	if w := serve(r, http.MethodGet, "/profiles", nil, ""); w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "[") {
		t.Errorf("list = %d %s", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/profiles?name=Ravi", nil, ""); w.Code != http.StatusOK || *p.byNameQ != "Ravi" {
		t.Errorf("by name = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/profiles?name=", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("blank name = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/getProfileByName?name=Ravi", nil, ""); w.Code != http.StatusOK {
		t.Errorf("legacy by name = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/profiles/zzz", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("malformed id = %d", w.Code)
	}

	p.notFound = true
	id := primitive.NewObjectID().Hex()
	if w := serve(r, http.MethodGet, "/profiles/"+id, nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d", w.Code)
	}
	if w := serve(r, http.MethodDelete, "/profiles/"+id, nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("delete unknown = %d", w.Code)
	}
}

func TestUpdateAndDeleteProfile(t *testing.T) {
	p := &stubProfiles{}
	r := newTestEngine(p, false)
	id := primitive.NewObjectID().Hex()

	w := serve(r, http.MethodPut, "/profiles/"+id, strings.NewReader(`{"personalDetails":{"name":"New"}}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}
	if p.patch.PersonalDetails == nil || p.patch.PersonalDetails.Name != "New" || p.patch.Education != nil {
		t.Errorf("patch = %+v", p.patch)
	}

	w = serve(r, http.MethodDelete, "/profiles/"+id, nil, "")
	if w.Code != http.StatusOK || decode(t, w)["success"] != true || p.deleted != id {
		t.Errorf("delete = %d %s", w.Code, w.Body.String())
	}
}

func TestAuthRequiredGatesMutations(t *testing.T) {
	r := newTestEngine(&stubProfiles{}, true)
	id := primitive.NewObjectID().Hex()

	if w := serve(r, http.MethodGet, "/profiles", nil, ""); w.Code != http.StatusOK {
		t.Errorf("reads stay public, got %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/profiles", strings.NewReader(`{}`), "application/json"); w.Code != http.StatusUnauthorized {
		t.Errorf("create without token = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/accounts", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("accounts without token = %d", w.Code)
	}

	faculty, _ := utils.IssueToken("secret", "u1", "Faculty", "f@kmit.in", time.Hour, time.Now())
	if w := serve(r, http.MethodPut, "/profiles/"+id, strings.NewReader(`{}`), "application/json", "Authorization", "Bearer "+faculty); w.Code != http.StatusOK {
		t.Errorf("faculty update = %d", w.Code)
	}
	if w := serve(r, http.MethodDelete, "/profiles/"+id, nil, "", "Authorization", "Bearer "+faculty); w.Code != http.StatusForbidden {
		t.Errorf("faculty delete = %d", w.Code)
	}

	admin, _ := utils.IssueToken("secret", "u2", "Admin", "a@kmit.in", time.Hour, time.Now())
	w := serve(r, http.MethodGet, "/accounts", nil, "", "Authorization", "Bearer "+admin)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "hidden") {
		t.Errorf("admin accounts = %d %s", w.Code, w.Body.String())
	}
}

func TestAccountsEndpoints(t *testing.T) {
	r := newTestEngine(&stubProfiles{}, false)

	w := serve(r, http.MethodPost, "/accounts/signup", strings.NewReader(`{"name":"A","email":"taken@kmit.in","password":"pw","role":"Faculty"}`), "application/json")
	if w.Code != http.StatusOK || decode(t, w)["success"] != false {
		t.Errorf("duplicate signup = %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPost, "/login", strings.NewReader(`{"email":"a@kmit.in","password":"pw"}`), "application/json")
	m := decode(t, w)
	if w.Code != http.StatusOK || m["success"] != true || m["role"] != "Admin" {
		t.Errorf("login = %d %v", w.Code, m)
	}

	w = serve(r, http.MethodPost, "/accounts/login", strings.NewReader(`{"email":"a@kmit.in","password":"nope"}`), "application/json")
	if m := decode(t, w); w.Code != http.StatusOK || m["success"] != false || m["message"] != "Invalid credentials" {
		t.Errorf("bad login = %d %v", w.Code, m)
	}
}

func TestContactEndpoint(t *testing.T) {
	r := newTestEngine(&stubProfiles{}, false)

	w := serve(r, http.MethodPost, "/contact", strings.NewReader(`{"fullName":"P","email":"p@x.in","feedback":"nice"}`), "application/json")
	m := decode(t, w)
	if w.Code != http.StatusCreated || m["success"] != true || m["message"] != "Contact message received" {
		t.Errorf("contact = %d %v", w.Code, m)
	}

	w = serve(r, http.MethodPost, "/contact", strings.NewReader(`{"fullName":"P"}`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid contact = %d", w.Code)
	}
}

func TestChatEndpoints(t *testing.T) {
	r := newTestEngine(&stubProfiles{}, false)

	w := serve(r, http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`), "application/json")
	m := decode(t, w)
	if w.Code != http.StatusOK || m["reply"] != "echo: hi" || m["session_id"] != "sess" {
		t.Errorf("chat = %d %v", w.Code, m)
	}

	if w := serve(r, http.MethodPost, "/chat", strings.NewReader(`{"message":""}`), "application/json"); w.Code != http.StatusBadRequest {
		t.Errorf("empty chat = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/chat/sess/logs", nil, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("logs without store = %d", w.Code)
	}
}

func TestWebSocketChat(t *testing.T) {
	srv := httptest.NewServer(newTestEngine(&stubProfiles{}, false))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var got map[string]any
	if err := conn.WriteJSON(map[string]string{"type": "chat_message", "message": "hello"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got["type"] != "bot_response" || got["reply"] != "echo: hello" {
		t.Errorf("reply = %v", got)
	}

	if err := conn.WriteJSON(map[string]string{"type": "chat_message"}); err != nil {
		t.Fatal(err)
	}
	got = nil
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got["type"] != "error" || got["message"] != "message is required" {
		t.Errorf("error frame = %v", got)
	}
}
