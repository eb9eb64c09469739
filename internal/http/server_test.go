package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feelance/internal/ai"
	"feelance/internal/auth"
	"feelance/internal/core"
	"feelance/internal/log"
	"feelance/internal/services"
	"feelance/internal/storage"
)

type fakeUsers struct{}

func (fakeUsers) GetUser(_ context.Context, userID string) (core.User, error) {
	if userID != "demo" {
		return core.User{}, fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	return core.User{UserID: "demo", DisplayName: "Demo User"}, nil
}

type fakeTransactions struct {
	tx  core.Transaction
	err error
}

func (f *fakeTransactions) List(context.Context, string, storage.TransactionFilter) ([]core.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []core.Transaction{f.tx}, nil
}

func (f *fakeTransactions) Get(context.Context, string) (core.Transaction, error) {
	return f.tx, f.err
}

func (f *fakeTransactions) Create(_ context.Context, userID string, date core.Date, item string, amount float64, mood int) (core.Transaction, error) {
	if f.err != nil {
		return core.Transaction{}, f.err
	}
	return core.Transaction{
		ID: "tx-new", UserID: userID, Date: date, Item: item,
		Amount: amount, MoodScore: mood,
		HappyAmount: core.HappyAmount(amount, mood),
	}, nil
}

func (f *fakeTransactions) Update(context.Context, string, services.TransactionUpdate) (core.Transaction, error) {
	return f.tx, f.err
}

func (f *fakeTransactions) Delete(context.Context, string) error { return f.err }

type fakeDiary struct {
	tokens    []string
	streamErr error
	doc       ai.TitledDocument
	genErr    error
	history   []core.ChatMessage
}

func (f *fakeDiary) StreamChat(_ context.Context, _, _ string, _ []core.ChatMessage, onToken func(string) error) error {
	for _, tok := range f.tokens {
		if err := onToken(tok); err != nil {
			return err
		}
	}
	return f.streamErr
}

func (f *fakeDiary) ChatHistory(context.Context, string, string) ([]core.ChatMessage, error) {
	return f.history, nil
}

func (f *fakeDiary) Generate(context.Context, string, string, []core.ChatMessage) (ai.TitledDocument, error) {
	return f.doc, f.genErr
}

func (f *fakeDiary) Save(_ context.Context, txID, userID, title, body string) (core.DiaryEntry, error) {
	return core.DiaryEntry{ID: "d1", TxID: txID, UserID: userID, DiaryTitle: title, DiaryBody: body}, nil
}

func (f *fakeDiary) List(context.Context, string, services.DiaryFilter) ([]core.DiaryEntry, error) {
	return []core.DiaryEntry{}, nil
}

type fakeReports struct {
	doc ai.TitledDocument
	err error
}

func (f *fakeReports) StreamChat(_ context.Context, _ string, _ []core.ChatMessage, onToken func(string) error) error {
	if f.err != nil {
		return f.err
	}
	return onToken("token")
}

func (f *fakeReports) Generate(context.Context, string, []core.ChatMessage) (ai.TitledDocument, error) {
	return f.doc, f.err
}

func (f *fakeReports) Save(_ context.Context, _, userID, title, body string) (core.Report, error) {
	return core.Report{UserID: userID, ReportTitle: title, ReportBody: body}, f.err
}

type fakeRetro struct {
	calls int
	err   error
}

func (f *fakeRetro) Summarize(context.Context, string, int) (core.RetrospectiveSummary, error) {
	f.calls++
	if f.err != nil {
		return core.RetrospectiveSummary{}, f.err
	}
	return core.EmptyRetrospective("quiet"), nil
}

type testEnv struct {
	server *Server
	retro  *fakeRetro
	diary  *fakeDiary
	txs    *fakeTransactions
	cookie *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions := auth.NewSessions("test-secret", time.Hour)
	env := &testEnv{
		retro: &fakeRetro{},
		diary: &fakeDiary{},
		txs:   &fakeTransactions{tx: core.Transaction{ID: "tx1", UserID: "demo", Item: "coffee"}},
	}
	env.server = NewServer(":0", sessions, fakeUsers{}, env.txs, env.diary,
		&fakeReports{doc: ai.TitledDocument{Title: "t", Body: "b"}}, env.retro,
		log.New(log.DefaultConfig()))
	t.Cleanup(func() { env.server.Shutdown(context.Background()) })

	token, err := sessions.Issue("demo")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	env.cookie = &http.Cookie{Name: auth.CookieName, Value: token}
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authed {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := env.do(t, http.MethodGet, path, "", false); rec.Code != http.StatusOK {
			t.Errorf("%s = %d", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/transactions"},
		{http.MethodPost, "/transactions"},
		{http.MethodGet, "/diary"},
		{http.MethodPost, "/diary/chat/stream"},
		{http.MethodGet, "/retrospective/summary"},
		{http.MethodGet, "/auth/me"},
	}
	for _, p := range paths {
		if rec := env.do(t, p.method, p.path, "", false); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", `{"user_id":"demo"}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body)
	}
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("login should set the session cookie")
	}

	if rec := env.do(t, http.MethodPost, "/auth/login", `{"user_id":"ghost"}`, false); rec.Code != http.StatusUnauthorized {
		t.Errorf("unregistered login = %d, want 401", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/auth/login", `not json`, false); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed login = %d, want 400", rec.Code)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/auth/me", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d", rec.Code)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserID != "demo" {
		t.Errorf("user = %q", resp.UserID)
	}
}

func TestCreateTransaction(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/transactions",
		`{"date":"2026-08-01","item":"coffee","amount":500,"mood_score":1}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body)
	}
	var tx core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.HappyAmount != 250 {
		t.Errorf("happy amount = %v", tx.HappyAmount)
	}

	if rec := env.do(t, http.MethodPost, "/transactions", `oops`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}
}

func TestTransactionErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	env.txs.err = fmt.Errorf("transaction x: %w", core.ErrNotFound)

	if rec := env.do(t, http.MethodGet, "/transactions/x", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("get missing = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/transactions/x", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d, want 404", rec.Code)
	}
}

func TestTransactionOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.txs.tx.UserID = "someone-else"

	if rec := env.do(t, http.MethodGet, "/transactions/tx1", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodPatch, "/transactions/tx1", `{"item":"x"}`, true); rec.Code != http.StatusNotFound {
		t.Errorf("foreign patch = %d, want 404", rec.Code)
	}
}

func TestDiaryChatStreamSSE(t *testing.T) {
	env := newTestEnv(t)
	env.diary.tokens = []string{"hel", "lo"}

	rec := env.do(t, http.MethodPost, "/diary/chat/stream",
		`{"tx_id":"tx1","messages":[{"role":"user","content":"hi"}]}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	want := "data: hel\n\ndata: lo\n\ndata: [DONE]\n\n"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}

func TestDiaryChatStreamErrorBeforeTokens(t *testing.T) {
	env := newTestEnv(t)
	env.diary.streamErr = core.ErrGenerationUnavailable

	rec := env.do(t, http.MethodPost, "/diary/chat/stream", `{"tx_id":"tx1"}`, true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("stream = %d, want 503", rec.Code)
	}
}

func TestDiaryChatStreamErrorMidStream(t *testing.T) {
	env := newTestEnv(t)
	env.diary.tokens = []string{"partial"}
	env.diary.streamErr = fmt.Errorf("upstream hiccup")

	rec := env.do(t, http.MethodPost, "/diary/chat/stream", `{"tx_id":"tx1"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status already sent, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data: partial\n\n") {
		t.Errorf("missing yielded token: %q", body)
	}
	if !strings.Contains(body, "event: error\n") {
		t.Errorf("missing error event: %q", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Errorf("failed stream must not end with DONE: %q", body)
	}
}

func TestDiaryGenerateErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	env.diary.genErr = core.ErrGenerationUnavailable
	if rec := env.do(t, http.MethodPost, "/diary/generate", `{"tx_id":"tx1"}`, true); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable = %d, want 503", rec.Code)
	}

	env.diary.genErr = fmt.Errorf("preview: %w", core.ErrGenerationFailed)
	if rec := env.do(t, http.MethodPost, "/diary/generate", `{"tx_id":"tx1"}`, true); rec.Code != http.StatusBadGateway {
		t.Errorf("failed = %d, want 502", rec.Code)
	}
}

func TestDiaryGenerateAndSave(t *testing.T) {
	env := newTestEnv(t)
	env.diary.doc = ai.TitledDocument{Title: "A Day", Body: "It went well."}

	rec := env.do(t, http.MethodPost, "/diary/generate", `{"tx_id":"tx1","messages":[]}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate = %d", rec.Code)
	}
	var doc generatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Title != "A Day" {
		t.Errorf("title = %q", doc.Title)
	}

	rec = env.do(t, http.MethodPost, "/diary/save",
		`{"tx_id":"tx1","title":"A Day","body":"It went well."}`, true)
	if rec.Code != http.StatusCreated {
		t.Errorf("save = %d", rec.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/reports/chat/stream", `{"tx_id":"tx1"}`, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "data: [DONE]") {
		t.Errorf("stream = %d %q", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/reports/generate", `{"tx_id":"tx1"}`, true)
	if rec.Code != http.StatusOK {
		t.Errorf("generate = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/reports/save", `{"tx_id":"tx1","title":"t","body":"b"}`, true)
	if rec.Code != http.StatusCreated {
		t.Errorf("save = %d", rec.Code)
	}
}

func TestRetrospectiveCaching(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		if rec := env.do(t, http.MethodGet, "/retrospective/summary?months=12", "", true); rec.Code != http.StatusOK {
			t.Fatalf("retrospective = %d", rec.Code)
		}
	}
	if env.retro.calls != 1 {
		t.Errorf("service called %d times, want 1 with cache hits after", env.retro.calls)
	}

	// a mutation invalidates the user's cached windows
	env.do(t, http.MethodPost, "/transactions",
		`{"date":"2026-08-01","item":"coffee","amount":500,"mood_score":1}`, true)
	env.do(t, http.MethodGet, "/retrospective/summary?months=12", "", true)
	if env.retro.calls != 2 {
		t.Errorf("service called %d times, want recompute after mutation", env.retro.calls)
	}
}

func TestRetrospectiveInvalidMonths(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/retrospective/summary?months=abc", "", true); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid months = %d, want 400", rec.Code)
	}
}

func TestChatHistoryRequiresTxID(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/diary/chat", "", true); rec.Code != http.StatusBadRequest {
		t.Errorf("missing tx_id = %d, want 400", rec.Code)
	}
}
