package router_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/quote-board/internal/config"
	"github.com/iliyamo/quote-board/internal/handler"
	"github.com/iliyamo/quote-board/internal/model"
	"github.com/iliyamo/quote-board/internal/queue"
	"github.com/iliyamo/quote-board/internal/repository"
	"github.com/iliyamo/quote-board/internal/router"
	"github.com/iliyamo/quote-board/internal/service"
	"github.com/iliyamo/quote-board/internal/service/servicetest"
	"github.com/iliyamo/quote-board/internal/utils"
)

// ----- fakes -----

type userStore struct {
	mu     sync.Mutex
	quotes *servicetest.Store
	byID   map[uint64]model.User
}

func (s *userStore) Create(_ context.Context, first, last, email, password string, cost int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u := s.quotes.AddUser(first, last, email)
	u.PasswordHash = hash
	s.byID[u.ID] = u
	return u.ID, nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.User{}, service.ErrNotFound
}

func (s *userStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, service.ErrNotFound
	}
	return u, nil
}

func (s *userStore) UpdatePassword(_ context.Context, id uint64, password string, cost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return service.ErrNotFound
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	s.byID[id] = u
	return nil
}

type tokenRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type tokenStore struct {
	mu   sync.Mutex
	rows map[string]*tokenRow
}

func (s *tokenStore) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[hash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (s *tokenStore) ConsumeRefresh(_ context.Context, hash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[hash]
	if !ok || r.revoked || !time.Now().Before(r.exp) {
		return 0, repository.ErrTokenInvalid
	}
	r.revoked = true
	return r.userID, nil
}

func (s *tokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.userID == userID {
			r.revoked = true
		}
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// ----- harness -----

type api struct {
	t      *testing.T
	e      *echo.Echo
	store  *servicetest.Store
	events *recordingPublisher
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newAPI(t *testing.T) *api {
	t.Helper()
	st := servicetest.NewStore()
	cfg := config.Config{
		JWTSecret:      "router-test-secret-0123",
		AccessTTLMin:   5,
		RefreshTTLDays: 1,
		BcryptCost:     bcrypt.MinCost,
	}
	pub := &recordingPublisher{}
	e := router.New(router.Deps{
		Cfg:    cfg,
		Auth:   handler.NewAuthHandler(cfg, &userStore{quotes: st, byID: map[uint64]model.User{}}, &tokenStore{rows: map[string]*tokenRow{}}),
		Quotes: handler.NewQuoteHandler(st, pub),
	})
	return &api{t: t, e: e, store: st, events: pub}
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	raw := ""
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		raw = string(b)
	}
	return a.doRaw(method, path, token, raw)
}

// doRaw sends body as is, for requests that are not valid JSON.
func (a *api) doRaw(method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

type tokens struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// register signs a user up and logs in, returning the access token.
func (a *api) register(first, email string) (string, tokens) {
	a.t.Helper()
	rec, _ := a.do(http.MethodPost, "/signup", "", map[string]string{
		"first_name": first, "last_name": "Tester", "email": email,
		"password": "secret1", "password_confirmation": "secret1",
	})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := a.do(http.MethodPost, "/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var tk tokens
	require.NoError(a.t, json.Unmarshal(env.Data, &tk))
	return tk.Token, tk
}

func (a *api) postQuote(token, content string) uint64 {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/quotes", token, map[string]string{"content": content})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var q model.Quote
	require.NoError(a.t, json.Unmarshal(env.Data, &q))
	return q.ID
}

func (a *api) view(token string, id uint64) map[string]any {
	a.t.Helper()
	rec, env := a.do(http.MethodGet, fmt.Sprintf("/quotes/%d", id), token, nil)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out
}

// ----- tests -----

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rec, _ := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUnknownRouteIsEnvelope404(t *testing.T) {
	a := newAPI(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodPatch, "/quotes"},
		{http.MethodGet, "/quotes/1/upvote"},
	} {
		rec, env := a.do(tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, "Not Found", env.Message)
	}
}

func TestSignupValidation(t *testing.T) {
	a := newAPI(t)
	rec, env := a.do(http.MethodPost, "/signup", "", map[string]string{
		"first_name": "", "last_name": "X", "email": "not-an-email",
		"password": "abc", "password_confirmation": "abd",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	var fields map[string][]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "first_name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	a.register("Ann", "ann@example.com")
	rec, env = a.do(http.MethodPost, "/signup", "", map[string]string{
		"first_name": "Ann", "last_name": "Again", "email": "ANN@example.com",
		"password": "secret1", "password_confirmation": "secret1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Equal(t, []string{"The email has already been taken."}, fields["email"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newAPI(t)
	a.register("Ann", "ann@example.com")

	rec, env := a.do(http.MethodPost, "/login", "", map[string]string{"email": "ann@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", env.Message)

	rec, _ = a.do(http.MethodPost, "/login", "", map[string]string{"email": "ghost@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRefreshLogout(t *testing.T) {
	a := newAPI(t)
	access, tk := a.register("Ann", "ann@example.com")

	rec, _ := a.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := a.do(http.MethodGet, "/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "ann@example.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	rec, env = a.do(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": tk.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rotated tokens
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEqual(t, tk.RefreshToken, rotated.RefreshToken)

	rec, _ = a.do(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": tk.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a rotated refresh token is spent")

	rec, env = a.do(http.MethodPost, "/logout", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully logged out", env.Message)

	rec, _ = a.do(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdatePassword(t *testing.T) {
	a := newAPI(t)
	access, _ := a.register("Ann", "ann@example.com")

	rec, env := a.do(http.MethodPut, "/me/update-password", access, map[string]string{
		"current_password": "wrong!", "password": "newpass", "password_confirmation": "newpass",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var fields map[string][]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "current_password")

	rec, _ = a.do(http.MethodPut, "/me/update-password", access, map[string]string{
		"current_password": "secret1", "password": "newpass", "password_confirmation": "newpass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = a.do(http.MethodPost, "/login", "", map[string]string{"email": "ann@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = a.do(http.MethodPost, "/login", "", map[string]string{"email": "ann@example.com", "password": "newpass"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuoteLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	author, _ := a.register("Ann", "ann@example.com")
	other, _ := a.register("Bob", "bob@example.com")

	rec, _ := a.do(http.MethodPost, "/quotes", "", map[string]string{"content": "anon"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := a.do(http.MethodPost, "/quotes", author, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, string(env.Data), "content")

	rec, env = a.doRaw(http.MethodPost, "/quotes", author, "{not json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "an undecodable body counts as empty")
	assert.Contains(t, string(env.Data), "content")

	id := a.postQuote(author, "Stay hungry, stay foolish.")

	rec, env = a.doRaw(http.MethodPut, fmt.Sprintf("/quotes/%d", id), author, `{"content": 42`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, string(env.Data), "content")

	// Checks run in order: validation, existence, ownership.
	rec, _ = a.do(http.MethodPut, "/quotes/999", other, map[string]string{"content": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec, env = a.do(http.MethodPut, "/quotes/999", other, map[string]string{"content": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Quote not found", env.Message)
	rec, env = a.do(http.MethodPut, fmt.Sprintf("/quotes/%d", id), other, map[string]string{"content": "hijacked"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", env.Message)
	assert.Equal(t, "Stay hungry, stay foolish.", a.view("", id)["content"])

	rec, _ = a.do(http.MethodPut, fmt.Sprintf("/quotes/%d", id), author, map[string]string{"content": "Stay hungry."})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Stay hungry.", a.view("", id)["content"])

	rec, _ = a.do(http.MethodDelete, fmt.Sprintf("/quotes/%d", id), other, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, env = a.do(http.MethodDelete, fmt.Sprintf("/quotes/%d", id), author, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Quote deleted", env.Message)

	rec, _ = a.do(http.MethodGet, fmt.Sprintf("/quotes/%d", id), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.do(http.MethodGet, "/quotes/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{queue.TypeQuoteCreated, queue.TypeQuoteUpdated, queue.TypeQuoteDeleted}, a.events.types())
}

func TestVotingOverHTTP(t *testing.T) {
	a := newAPI(t)
	author, _ := a.register("Ann", "ann@example.com")
	voter, _ := a.register("Bob", "bob@example.com")
	id := a.postQuote(author, "Less is more.")
	path := func(kind string) string { return fmt.Sprintf("/quotes/%d/%s", id, kind) }

	rec, env := a.do(http.MethodPost, fmt.Sprintf("/quotes/%d/sideways", 999), voter, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "type is checked before the quote")
	assert.Equal(t, "Validation failed", env.Message)
	assert.JSONEq(t, `{"type":["Invalid vote type"]}`, string(env.Data))

	rec, _ = a.do(http.MethodPost, "/quotes/999/upvote", voter, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = a.do(http.MethodPost, path("upvote"), author, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You cannot vote for your own quote", env.Message)

	rec, _ = a.do(http.MethodPost, path("upvote"), voter, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())

	v := a.view(voter, id)
	assert.EqualValues(t, 1, v["score"])
	assert.EqualValues(t, 1, v["user_vote"])
	assert.NotContains(t, a.view("", id), "user_vote")
	authorView := a.view(author, id)
	require.Contains(t, authorView, "user_vote")
	assert.Nil(t, authorView["user_vote"])

	rec, _ = a.do(http.MethodPost, path("downvote"), voter, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	v = a.view(voter, id)
	assert.EqualValues(t, -1, v["score"])
	assert.EqualValues(t, 0, v["upvotes"])
	assert.EqualValues(t, 1, v["downvotes"])

	rec, _ = a.do(http.MethodPost, path("downvote"), voter, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualValues(t, 0, a.view("", id)["score"])

	rec, env = a.do(http.MethodGet, fmt.Sprintf("/quotes/%d/votes", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))

	assert.Equal(t, []string{queue.TypeQuoteCreated, queue.TypeVoteCast, queue.TypeVoteCast, queue.TypeVoteCast}, a.events.types())
}

func TestListAndRandom(t *testing.T) {
	a := newAPI(t)
	author, _ := a.register("Ann", "ann@example.com")
	voter, _ := a.register("Bob", "bob@example.com")

	rec, env := a.do(http.MethodGet, "/quotes/random", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(env.Data))

	quiet := a.postQuote(author, "quiet")
	liked := a.postQuote(author, "liked")
	rec, _ = a.do(http.MethodPost, fmt.Sprintf("/quotes/%d/upvote", liked), voter, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = a.do(http.MethodGet, "/quotes?limit=1", voter, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		CurrentPage int              `json:"current_page"`
		PerPage     int              `json:"per_page"`
		HasMore     bool             `json:"has_more"`
		Data        []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.PerPage)
	assert.True(t, page.HasMore)
	require.Len(t, page.Data, 1)
	assert.EqualValues(t, liked, page.Data[0]["id"])
	assert.EqualValues(t, 1, page.Data[0]["user_vote"])

	rec, env = a.do(http.MethodGet, "/quotes?page=2&limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page.Data = nil
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.False(t, page.HasMore)
	require.Len(t, page.Data, 1)
	assert.EqualValues(t, quiet, page.Data[0]["id"])
	assert.NotContains(t, page.Data[0], "user_vote")

	for _, q := range []string{"/quotes?page=0", "/quotes?limit=101", "/quotes?page=abc"} {
		rec, _ = a.do(http.MethodGet, q, "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, q)
	}

	rec, env = a.do(http.MethodGet, "/quotes/random", author, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var random map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &random))
	assert.Contains(t, random, "user_vote")
	assert.Contains(t, []any{float64(quiet), float64(liked)}, random["id"])
}
