package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/logging"
	"github.com/dmitrijs2005/classgate/internal/server/auth"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/services"
	"github.com/dmitrijs2005/classgate/internal/server/session"
	"github.com/dmitrijs2005/classgate/internal/server/upstream"
	"github.com/stretchr/testify/require"
)

var (
	testNow    = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	testSecret = []byte("session-secret")
)

// fakeUsers serves both the api and the session middleware.
type fakeUsers struct {
	byID map[string]*models.User

	otpErr   error
	loginErr error
	enrollFn func(userID, batchID string) (*models.User, error)

	otpPhones []string
	saved     []models.User
	loggedOut []string
}

func (f *fakeUsers) RequestOTP(ctx context.Context, phone string) error {
	f.otpPhones = append(f.otpPhones, phone)
	return f.otpErr
}

func (f *fakeUsers) Login(ctx context.Context, phone, otp string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	u := &models.User{ID: "U9", PhoneNumber: phone, HasLoggedIn: true}
	token, exp, err := auth.GenerateToken(u.ID, "", testSecret, time.Hour, testNow)
	if err != nil {
		return nil, err
	}
	return &services.LoginResult{User: u, Token: token, ExpiresAt: exp}, nil
}

func (f *fakeUsers) Logout(ctx context.Context, user *models.User) error {
	f.loggedOut = append(f.loggedOut, user.ID)
	return nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Save(ctx context.Context, u *models.User) error {
	f.saved = append(f.saved, *u)
	return nil
}

func (f *fakeUsers) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	out := []*models.User{}
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeUsers) Enroll(ctx context.Context, userID, batchID string) (*models.User, error) {
	if f.enrollFn != nil {
		return f.enrollFn(userID, batchID)
	}
	u, err := f.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Enroll(models.EnrolledBatch{BatchID: batchID, Name: "n-" + batchID}) {
		return nil, common.ErrAlreadyExists
	}
	return u, nil
}

func (f *fakeUsers) Unenroll(ctx context.Context, userID, batchID string) (*models.User, error) {
	u, err := f.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Unenroll(batchID) {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeRefresher struct {
	err error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*upstream.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &upstream.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

type fakeBatches struct {
	items map[string]*models.Batch
}

func (f *fakeBatches) Create(ctx context.Context, b *models.Batch) (*models.Batch, error) {
	for _, existing := range f.items {
		if existing.BatchID == b.BatchID {
			return nil, common.ErrAlreadyExists
		}
	}
	b.ID = "id-" + b.BatchID
	f.items[b.ID] = b
	return b, nil
}

func (f *fakeBatches) Get(ctx context.Context, id string) (*models.Batch, error) {
	b, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b, nil
}

func (f *fakeBatches) List(ctx context.Context) ([]*models.Batch, error) {
	out := []*models.Batch{}
	for _, b := range f.items {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBatches) Update(ctx context.Context, id string, b *models.Batch) (*models.Batch, error) {
	if _, ok := f.items[id]; !ok {
		return nil, common.ErrorNotFound
	}
	b.ID = id
	f.items[id] = b
	return b, nil
}

func (f *fakeBatches) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeAdmins struct{}

func (fakeAdmins) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if username != "root" || password != "pw" {
		return "", time.Time{}, common.ErrInvalidCredentials
	}
	return "admin-tok", testNow.Add(2 * time.Hour), nil
}

func (fakeAdmins) VerifyToken(token string) (*auth.Claims, error) {
	if token != "admin-tok" {
		return nil, common.ErrorUnauthorized
	}
	return &auth.Claims{UserID: "A1", Role: common.AdminRole}, nil
}

type fakeConfig struct {
	current models.ServerConfig
}

func (f *fakeConfig) Get(ctx context.Context) (*models.ServerConfig, error) {
	cp := f.current
	return &cp, nil
}

func (f *fakeConfig) Update(ctx context.Context, c *models.ServerConfig) (*models.ServerConfig, error) {
	f.current = *c
	return c, nil
}

type fakeProxy struct {
	body  string
	err   error
	query url.Values
}

func (f *fakeProxy) Fetch(ctx context.Context, user *models.User, batchID, resource string, query url.Values) (json.RawMessage, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

type fakeHealth struct{ serving bool }

func (f fakeHealth) Serving(context.Context) bool { return f.serving }

type apiFixture struct {
	users     *fakeUsers
	batches   *fakeBatches
	config    *fakeConfig
	proxy     *fakeProxy
	refresher *fakeRefresher
	router    http.Handler
}

func newAPIFixture(t *testing.T, users ...*models.User) *apiFixture {
	t.Helper()
	f := &apiFixture{
		users:     &fakeUsers{byID: map[string]*models.User{}},
		batches:   &fakeBatches{items: map[string]*models.Batch{}},
		config:    &fakeConfig{},
		proxy:     &fakeProxy{body: `{"items":[]}`},
		refresher: &fakeRefresher{},
	}
	for _, u := range users {
		f.users.byID[u.ID] = u
	}

	sessionCookies := auth.NewCookieManager(common.SessionCookieName, time.Hour, false)
	mw := session.NewMiddleware(testSecret, time.Hour, f.users, f.refresher, sessionCookies, logging.Nop{},
		session.WithClock(func() time.Time { return testNow }))

	h := NewHandler(Deps{
		Users:          f.users,
		Batches:        f.batches,
		Admins:         fakeAdmins{},
		Config:         f.config,
		Proxy:          f.proxy,
		Session:        mw,
		SessionCookies: sessionCookies,
		AdminCookies:   auth.NewCookieManager(common.AdminCookieName, 2*time.Hour, false),
		Health:         fakeHealth{serving: true},
		Logger:         logging.Nop{},
	})
	f.router = NewRouter(h, []string{"https://portal.example"})
	return f
}

func sessionToken(t *testing.T, userID string, validity time.Duration) string {
	t.Helper()
	tok, _, err := auth.GenerateToken(userID, "", testSecret, validity, testNow)
	require.NoError(t, err)
	return tok
}

type reqOpt func(*http.Request)

func withCookie(name, value string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func (f *apiFixture) do(method, target, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
