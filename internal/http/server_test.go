package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shubham5177/expense-tracker/internal/amqp"
	"github.com/shubham5177/expense-tracker/internal/auth"
	"github.com/shubham5177/expense-tracker/internal/core"
	"github.com/shubham5177/expense-tracker/internal/report"
	"github.com/shubham5177/expense-tracker/internal/stats"
	"github.com/shubham5177/expense-tracker/internal/storage"
)

type fakeUserStore struct {
	users  map[int64]core.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]core.User{}, nextID: 1}
}

func (f *fakeUserStore) CreateUser(_ context.Context, name, email, passwordHash string) (int64, error) {
	id := f.nextID
	f.nextID++
	f.users[id] = core.User{
		ID: id, Name: name, Email: email, PasswordHash: passwordHash,
		Verified: true, Currency: "₹", CreatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int64) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (f *fakeUserStore) MarkUserVerified(_ context.Context, email string) error {
	for id, u := range f.users {
		if u.Email == email {
			u.Verified = true
			f.users[id] = u
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeUserStore) UpdateUserName(_ context.Context, id int64, name string) error {
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Name = name
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, id int64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) UpdateUserCurrency(_ context.Context, id int64, currency string) error {
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Currency = currency
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) DeleteUser(_ context.Context, id int64) error {
	delete(f.users, id)
	return nil
}

type fakeExpenseStore struct {
	expenses map[int64]core.Expense
	nextID   int64
}

func newFakeExpenseStore() *fakeExpenseStore {
	return &fakeExpenseStore{expenses: map[int64]core.Expense{}, nextID: 1}
}

func (f *fakeExpenseStore) CreateExpense(_ context.Context, e core.Expense) (int64, error) {
	e.ID = f.nextID
	e.CreatedAt = time.Now()
	f.nextID++
	f.expenses[e.ID] = e
	return e.ID, nil
}

func (f *fakeExpenseStore) GetExpense(_ context.Context, userID, id int64) (core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return core.Expense{}, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeExpenseStore) UpdateExpense(_ context.Context, e core.Expense) error {
	old, ok := f.expenses[e.ID]
	if !ok || old.UserID != e.UserID {
		return storage.ErrNotFound
	}
	e.CreatedAt = old.CreatedAt
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeExpenseStore) DeleteExpense(_ context.Context, userID, id int64) error {
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return storage.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeExpenseStore) SearchByUser(_ context.Context, userID int64, search, category string) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range f.expenses {
		if e.UserID != userID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(search)) {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeStats struct {
	result stats.Result
}

func (f *fakeStats) ComputeStats(context.Context, int64) (stats.Result, error) {
	return f.result, nil
}

type fakeReports struct{}

func (fakeReports) RenderMonthlyReport(context.Context, int64, report.Identity) ([]byte, string, error) {
	return []byte("%PDF-1.4 fake"), "expense_report_2024-02.pdf", nil
}

type fakePublisher struct {
	published []*amqp.VerificationMailMessage
}

func (f *fakePublisher) PublishVerificationMail(_ context.Context, msg *amqp.VerificationMailMessage) error {
	f.published = append(f.published, msg)
	return nil
}

type testEnv struct {
	server    *Server
	users     *fakeUserStore
	expenses  *fakeExpenseStore
	tokens    *auth.TokenService
	publisher *fakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newFakeUserStore()
	expenses := newFakeExpenseStore()
	tokens := auth.NewTokenService("test-secret", time.Hour)
	publisher := &fakePublisher{}

	result := stats.Result{
		TotalSpending:   decimal.NewFromInt(180),
		MonthlySpending: decimal.NewFromInt(30),
		TodaySpending:   decimal.NewFromInt(30),
		CategoryTotals:  map[string]decimal.Decimal{"Food": decimal.NewFromInt(150)},
		ChartData: stats.ChartData{
			Labels: []string{"2024-01", "2024-02"},
			Data:   []decimal.Decimal{decimal.NewFromInt(150), decimal.NewFromInt(30)},
		},
	}

	srv := NewServer(":0", Deps{
		Users:    users,
		Expenses: expenses,
		Stats:    &fakeStats{result: result},
		Reports:  fakeReports{},
		Tokens:   tokens,
		Mail:     publisher,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return &testEnv{server: srv, users: users, expenses: expenses, tokens: tokens, publisher: publisher}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) signupAndLogin(t *testing.T) (core.User, string) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/signup", "", map[string]string{
		"name": "Shubham", "email": "shubham@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "shubham@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	user, err := env.users.GetUserByID(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	return user, resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t)

	rec := env.do(t, http.MethodPost, "/signup", "", map[string]string{
		"name": "Other", "email": "shubham@example.com", "password": "secret2",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want 409", rec.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"name": "A", "password": "secret1"}},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "secret1"}},
		{"short password", map[string]string{"name": "A", "email": "a@b.com", "password": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/signup", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSignupPublishesVerificationMail(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t)

	if len(env.publisher.published) != 1 {
		t.Fatalf("published messages = %d, want 1", len(env.publisher.published))
	}
	msg := env.publisher.published[0]
	if msg.Email != "shubham@example.com" {
		t.Errorf("message email = %q", msg.Email)
	}
	if msg.Token == "" {
		t.Error("message token is empty")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t)

	rec := env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "shubham@example.com", "password": "wrong-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t)

	token, err := env.tokens.GenerateEmailToken("shubham@example.com")
	if err != nil {
		t.Fatalf("generate email token: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/verify?token="+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/verify?token=garbage", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad token status = %d, want 400", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/expenses", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/expenses", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", rec.Code)
	}
}

func TestAuthDeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.signupAndLogin(t)

	if err := env.users.DeleteUser(context.Background(), user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	rec := env.do(t, http.MethodGet, "/api/expenses", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signupAndLogin(t)

	rec := env.do(t, http.MethodPost, "/api/expenses", token, map[string]string{
		"title": "Groceries", "category": "Food", "amount": "120.50", "date": "2024-02-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || created.Title != "Groceries" {
		t.Errorf("created = %+v", created)
	}

	rec = env.do(t, http.MethodGet, "/api/expenses", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed = %d items, want 1", len(listed))
	}

	rec = env.do(t, http.MethodPut, "/api/expenses/1", token, map[string]string{
		"title": "Weekly groceries", "category": "Food", "amount": "130", "date": "2024-02-02",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/api/expenses/1", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/expenses/1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing status = %d, want 404", rec.Code)
	}
}

func TestExpenseValidationRejected(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signupAndLogin(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"bad date", map[string]string{"title": "X", "category": "Food", "amount": "10", "date": "01-02-2024"}, http.StatusUnprocessableEntity},
		{"negative amount", map[string]string{"title": "X", "category": "Food", "amount": "-3", "date": "2024-02-01"}, http.StatusUnprocessableEntity},
		{"missing title", map[string]string{"category": "Food", "amount": "10", "date": "2024-02-01"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/expenses", token, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestUpdateMissingExpense(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signupAndLogin(t)

	rec := env.do(t, http.MethodPut, "/api/expenses/99", token, map[string]string{
		"title": "X", "category": "Food", "amount": "10", "date": "2024-02-01",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signupAndLogin(t)

	rec := env.do(t, http.MethodGet, "/api/dashboard/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	for _, key := range []string{"total_spending", "monthly_spending", "today_spending", "category_totals", "chart_data"} {
		if _, ok := body[key]; !ok {
			t.Errorf("stats response missing %q", key)
		}
	}
	if string(body["total_spending"]) != "180" {
		t.Errorf("total_spending = %s, want unquoted 180", body["total_spending"])
	}
}

func TestExportPDFHeaders(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signupAndLogin(t)

	rec := env.do(t, http.MethodGet, "/api/export/pdf", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "expense_report_2024-02.pdf") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.signupAndLogin(t)

	rec := env.do(t, http.MethodPut, "/api/settings/profile", token, map[string]string{"name": "Shubham K"})
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated, _ := env.users.GetUserByID(context.Background(), user.ID)
	if updated.Name != "Shubham K" {
		t.Errorf("name = %q", updated.Name)
	}

	rec = env.do(t, http.MethodPut, "/api/settings/password", token, map[string]string{
		"current_password": "wrong", "new_password": "newsecret",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong current password status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/settings/password", token, map[string]string{
		"current_password": "secret1", "new_password": "newsecret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("change password status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "shubham@example.com", "password": "newsecret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/settings/currency", token, map[string]string{"currency": "¥"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad currency status = %d, want 422", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/api/settings/currency", token, map[string]string{"currency": "$"})
	if rec.Code != http.StatusOK {
		t.Fatalf("currency status = %d", rec.Code)
	}
	updated, _ = env.users.GetUserByID(context.Background(), user.ID)
	if updated.Currency != "$" {
		t.Errorf("currency = %q", updated.Currency)
	}

	rec = env.do(t, http.MethodDelete, "/api/settings/account", token, map[string]string{"password": "wrong"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("delete account wrong password status = %d, want 403", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/settings/account", token, map[string]string{"password": "newsecret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete account status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/expenses", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("after delete status = %d, want 401", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/login", "", map[string]string{"email": "a@b.com", "password": "x"})
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestRateLimitMutatingRequests(t *testing.T) {
	env := newTestEnv(t)

	var last int
	for i := 0; i < 61; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
		req.Header.Set("X-Forwarded-For", "10.0.0.9")
		rec := httptest.NewRecorder()
		env.server.Server.Handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("61st request status = %d, want 429", last)
	}
}
