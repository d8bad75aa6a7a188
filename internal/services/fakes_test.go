package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/utils"
)

type fakeProfileRepo struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]models.Profile
	order     []primitive.ObjectID
	insertErr error
	// skipEmailCheck makes EmailTaken miss, as when a concurrent insert wins
	skipEmailCheck bool
}

func newFakeProfileRepo(seed ...models.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{byID: map[primitive.ObjectID]models.Profile{}}
	for _, p := range seed {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

func (r *fakeProfileRepo) Insert(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if r.emailInUse(p.PersonalDetails.Email, p.ID) {
		return utils.ErrDuplicate
	}
	r.byID[p.ID] = *p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *fakeProfileRepo) List(context.Context) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Profile{}
	for _, id := range r.order {
		if p, ok := r.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProfileRepo) FindByName(_ context.Context, name string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if p, ok := r.byID[id]; ok && p.PersonalDetails.Name == name {
			return &p, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *fakeProfileRepo) emailInUse(email string, except primitive.ObjectID) bool {
	if email == "" {
		return false
	}
	for id, p := range r.byID {
		if id != except && p.PersonalDetails.Email == email {
			return true
		}
	}
	return false
}

func (r *fakeProfileRepo) EmailTaken(_ context.Context, email string, except primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.skipEmailCheck {
		return false, nil
	}
	return r.emailInUse(email, except), nil
}

func (r *fakeProfileRepo) Update(_ context.Context, id primitive.ObjectID, patch models.ProfilePatch, updatedAt time.Time) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if patch.PersonalDetails != nil {
		if r.emailInUse(patch.PersonalDetails.Email, id) {
			return nil, utils.ErrDuplicate
		}
		p.PersonalDetails = *patch.PersonalDetails
	}
	if patch.Education != nil {
		p.Education = *patch.Education
	}
	if patch.ProfessionalExperience != nil {
		p.ProfessionalExperience = *patch.ProfessionalExperience
	}
	if patch.Certificates != nil {
		p.Certificates = *patch.Certificates
	}
	p.UpdatedAt = updatedAt
	r.byID[id] = p
	return &p, nil
}

func (r *fakeProfileRepo) SetDocuments(_ context.Context, id primitive.ObjectID, paths map[models.DocumentKind]string, updatedAt time.Time) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	for kind, path := range paths {
		kind.Apply(&p, path)
	}
	p.UpdatedAt = updatedAt
	r.byID[id] = p
	return &p, nil
}

func (r *fakeProfileRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return utils.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type fakeUploader struct {
	mu      sync.Mutex
	stored  map[string][]byte
	failAt  int // 1-based upload that fails, 0 never
	calls   int
	baseDir string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{stored: map[string][]byte{}, baseDir: "certificates"}
}

func (u *fakeUploader) Upload(_ context.Context, objectName, _ string, _ int64, r io.Reader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.failAt > 0 && u.calls == u.failAt {
		return "", errors.New("disk full")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	path := u.baseDir + "/" + objectName
	u.stored[path] = b
	return path, nil
}

type fakeDocumentRepo struct {
	mu   sync.Mutex
	rows []models.ProfileDocument
	err  error
}

func (r *fakeDocumentRepo) InsertMany(_ context.Context, docs []models.ProfileDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, docs...)
	return nil
}

func (r *fakeDocumentRepo) ListByProfile(_ context.Context, profileID string) ([]models.ProfileDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ProfileDocument
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].ProfileID == profileID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	byEmail  map[string]*models.Account
	logins   []models.LoginEvent
	getErr   error
	loginErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byEmail: map[string]*models.Account{}}
}

func (r *fakeAccountRepo) Insert(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[a.Email]; ok {
		return utils.ErrDuplicate
	}
	a.ID = primitive.NewObjectID()
	cp := *a
	r.byEmail[a.Email] = &cp
	return nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	a, ok := r.byEmail[email]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) RecordLogin(_ context.Context, id primitive.ObjectID, ev models.LoginEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loginErr != nil {
		return r.loginErr
	}
	for _, a := range r.byEmail {
		if a.ID == id {
			a.LoginCount++
			ts := ev.Timestamp
			a.LastLogin = &ts
			a.LoginHistory = append(a.LoginHistory, ev)
			r.logins = append(r.logins, ev)
			return nil
		}
	}
	return utils.ErrNotFound
}

func (r *fakeAccountRepo) List(context.Context) ([]models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Account{}
	for _, a := range r.byEmail {
		out = append(out, *a)
	}
	return out, nil
}

type fakeContactRepo struct {
	saved []models.ContactMessage
	err   error
}

func (r *fakeContactRepo) Insert(_ context.Context, m *models.ContactMessage) error {
	if r.err != nil {
		return r.err
	}
	m.ID = primitive.NewObjectID()
	r.saved = append(r.saved, *m)
	return nil
}

type fakeChatLogRepo struct {
	mu        sync.Mutex
	rows      []models.ChatLog
	lastLimit int
}

func (r *fakeChatLogRepo) Insert(_ context.Context, logs ...*models.ChatLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range logs {
		r.rows = append(r.rows, *l)
	}
	return nil
}

func (r *fakeChatLogRepo) ListBySession(_ context.Context, sessionID string, limit int) ([]models.ChatLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	var out []models.ChatLog
	for _, row := range r.rows {
		if row.SessionID == sessionID {
			out = append(out, row)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// fakeCache keeps lists as raw JSON items, like the Redis implementation.
type fakeCache struct {
	mu    sync.Mutex
	lists map[string][]json.RawMessage
}

func newFakeCache() *fakeCache { return &fakeCache{lists: map[string][]json.RawMessage{}} }

func (c *fakeCache) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (c *fakeCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (c *fakeCache) Del(context.Context, ...string) error                      { return nil }

func (c *fakeCache) AppendJSON(_ context.Context, key string, val any, keep int64, _ time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l := append(c.lists[key], b)
	if int64(len(l)) > keep {
		l = l[int64(len(l))-keep:]
	}
	c.lists[key] = l
	return nil
}

func (c *fakeCache) ListJSON(_ context.Context, key string, dst any) error {
	c.mu.Lock()
	items := c.lists[key]
	c.mu.Unlock()
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

type fakeLLM struct {
	reply   string
	err     error
	history []models.ChatTurn
	calls   int
}

func (f *fakeLLM) Answer(_ context.Context, history []models.ChatTurn, _ string) (string, error) {
	f.calls++
	f.history = history
	return f.reply, f.err
}

func (f *fakeLLM) Close() error { return nil }
