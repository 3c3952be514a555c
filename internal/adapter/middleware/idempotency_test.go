package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"collateral-ledger/internal/adapter/caller"
	httpadp "collateral-ledger/internal/adapter/http"
	"collateral-ledger/internal/adapter/repository/memory"
	"collateral-ledger/internal/usecase/ledger"
)

const (
	borrower = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	lender   = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"

	requestBody = `{"interest_rate":10,"duration":3600,"collateral_amount":"1100000000000000000","loan_amount":"1000000000000000000","value":"1100000000000000000"}`
	fundBody    = `{"value":"1000000000000000000"}`

	idA = "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88"
	idB = "8d0c3b7e-91f2-4a55-9c1e-2b7f6a0d4e13"
	idC = "c2e4a9f0-5b6d-4e8a-a1c3-7f9e0b2d4c6a"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	e   *echo.Echo
	mr  *miniredis.Miniredis
	clk *stepClock
}

// newHarness serves the ledger routes behind Idempotency, with the ledger and
// the replay store reading the same clock.
func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clk := &stepClock{t: time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)}
	s := memory.NewStore()
	uc := ledger.NewUsecase(memory.NewLoanRepository(s), memory.NewEventRepository(s), memory.NewUoW(s),
		ledger.WithClock(clk.now))

	store := NewReplayStore(rdb, 5*time.Minute)
	store.now = clk.now

	e := echo.New()
	e.Validator = httpadp.NewValidator()
	httpadp.NewLedgerHandler(uc).Register(e.Group("", Idempotency(store)))
	return &harness{e: e, mr: mr, clk: clk}
}

func (h *harness) call(t *testing.T, method, path, who, reqID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if who != "" {
		req.Header.Set(caller.Header, who)
	}
	if reqID != "" {
		req.Header.Set(RequestIDHeader, reqID)
		req.Header.Set(SentAtHeader, strconv.FormatInt(h.clk.now().Unix(), 10))
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) eventCount(t *testing.T) int {
	t.Helper()
	rec := h.call(t, http.MethodGet, "/events", "", "", "")
	var out struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("events: %v; raw=%s", err, rec.Body.String())
	}
	return len(out.Events)
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, want, rec.Body.String())
	}
}

func isReplay(rec *httptest.ResponseRecorder) bool { return rec.Header().Get(ReplayHeader) == "true" }

func TestRetriedRequest_ReplaysWithoutSecondLoan(t *testing.T) {
	h := newHarness(t)

	first := h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody)
	mustStatus(t, first, http.StatusCreated)
	if isReplay(first) {
		t.Fatal("first call must not be a replay")
	}
	var res httpadp.ResultResponse
	if err := json.Unmarshal(first.Body.Bytes(), &res); err != nil || len(res.Events) != 1 {
		t.Fatalf("bad result: %v %s", err, first.Body.String())
	}

	second := h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody)
	mustStatus(t, second, http.StatusCreated)
	if !isReplay(second) || second.Body.String() != first.Body.String() {
		t.Fatalf("want replay of first body, got replay=%v body=%s", isReplay(second), second.Body.String())
	}
	if got, want := second.Header().Get(EventSeqsHeader), strconv.FormatUint(res.Events[0].Seq, 10); got != want {
		t.Fatalf("%s = %q, want %q", EventSeqsHeader, got, want)
	}
	if n := h.eventCount(t); n != 1 {
		t.Fatalf("events = %d, want 1", n)
	}
	mustStatus(t, h.call(t, http.MethodGet, "/loans/1", "", "", ""), http.StatusNotFound)
}

func TestRequestIDSpellings_ShareOneCall(t *testing.T) {
	h := newHarness(t)
	mustStatus(t, h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody), http.StatusCreated)

	bare := strings.ToUpper(strings.ReplaceAll(idA, "-", ""))
	rec := h.call(t, http.MethodPost, "/loans", strings.ToLower(borrower), bare, requestBody)
	mustStatus(t, rec, http.StatusCreated)
	if !isReplay(rec) {
		t.Fatal("same id in another spelling and caller case must replay")
	}
	if n := h.eventCount(t); n != 1 {
		t.Fatalf("events = %d, want 1", n)
	}
}

func TestSameRequestID_OnDifferentLoansIsTwoCalls(t *testing.T) {
	h := newHarness(t)
	mustStatus(t, h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody), http.StatusCreated)
	mustStatus(t, h.call(t, http.MethodPost, "/loans", borrower, idB, requestBody), http.StatusCreated)

	for _, path := range []string{"/loans/0/fund", "/loans/1/fund"} {
		rec := h.call(t, http.MethodPost, path, lender, idC, fundBody)
		mustStatus(t, rec, http.StatusOK)
		if isReplay(rec) {
			t.Fatalf("%s must execute, not replay", path)
		}
	}
	if n := h.eventCount(t); n != 4 {
		t.Fatalf("events = %d, want 4", n)
	}
}

func TestReusedRequestID_WithDifferentAmountConflicts(t *testing.T) {
	h := newHarness(t)
	mustStatus(t, h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody), http.StatusCreated)
	mustStatus(t, h.call(t, http.MethodPost, "/loans/0/fund", lender, idB, fundBody), http.StatusOK)

	rec := h.call(t, http.MethodPost, "/loans/0/fund", lender, idB, `{"value":"2000000000000000000"}`)
	mustStatus(t, rec, http.StatusConflict)
	if !strings.Contains(rec.Body.String(), "different body") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestNotOverdueClaim_RunsAgainAfterDueDate(t *testing.T) {
	h := newHarness(t)
	mustStatus(t, h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody), http.StatusCreated)
	mustStatus(t, h.call(t, http.MethodPost, "/loans/0/fund", lender, idB, fundBody), http.StatusOK)

	early := h.call(t, http.MethodPost, "/loans/0/claim", lender, idC, "")
	mustStatus(t, early, http.StatusConflict)
	if !strings.Contains(early.Body.String(), "NotOverdue") {
		t.Fatalf("unexpected body: %s", early.Body.String())
	}

	h.clk.advance(2 * time.Hour)
	late := h.call(t, http.MethodPost, "/loans/0/claim", lender, idC, "")
	mustStatus(t, late, http.StatusOK)
	if isReplay(late) {
		t.Fatal("claim after the due date must execute")
	}

	again := h.call(t, http.MethodPost, "/loans/0/claim", lender, idC, "")
	mustStatus(t, again, http.StatusOK)
	if !isReplay(again) || again.Body.String() != late.Body.String() {
		t.Fatal("settled claim must replay")
	}
}

func TestFundBeforeRequest_RunsAgainOnceLoanExists(t *testing.T) {
	h := newHarness(t)
	mustStatus(t, h.call(t, http.MethodPost, "/loans/0/fund", lender, idB, fundBody), http.StatusNotFound)

	mustStatus(t, h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody), http.StatusCreated)
	rec := h.call(t, http.MethodPost, "/loans/0/fund", lender, idB, fundBody)
	mustStatus(t, rec, http.StatusOK)
	if isReplay(rec) {
		t.Fatal("fund must execute once the loan exists")
	}
}

func TestPermanentRejection_IsReplayed(t *testing.T) {
	h := newHarness(t)
	mustStatus(t, h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody), http.StatusCreated)

	wrong := `{"value":"999"}`
	first := h.call(t, http.MethodPost, "/loans/0/fund", lender, idB, wrong)
	mustStatus(t, first, http.StatusUnprocessableEntity)
	second := h.call(t, http.MethodPost, "/loans/0/fund", lender, idB, wrong)
	mustStatus(t, second, http.StatusUnprocessableEntity)
	if !isReplay(second) || second.Header().Get(EventSeqsHeader) != "" {
		t.Fatalf("rejection must replay without seqs: headers=%v", second.Header())
	}
}

func TestInvalidCaller_IsLeftToHandler(t *testing.T) {
	h := newHarness(t)
	for _, who := range []string{"", "not-an-address"} {
		rec := h.call(t, http.MethodPost, "/loans", who, idA, requestBody)
		mustStatus(t, rec, http.StatusUnprocessableEntity)
		if !strings.Contains(rec.Body.String(), "InvalidCaller") {
			t.Fatalf("caller %q: unexpected body %s", who, rec.Body.String())
		}
	}
	if keys := h.mr.Keys(); len(keys) != 0 {
		t.Fatalf("nothing must be stored, got %v", keys)
	}
}

func TestHeaderValidation(t *testing.T) {
	h := newHarness(t)
	now := h.clk.now()
	tests := []struct {
		name   string
		reqID  string
		sentAt string
	}{
		{"missing request id", "", strconv.FormatInt(now.Unix(), 10)},
		{"bad request id", "loan-0", strconv.FormatInt(now.Unix(), 10)},
		{"nil request id", "00000000000000000000000000000000", strconv.FormatInt(now.Unix(), 10)},
		{"missing sent at", idA, ""},
		{"bad sent at", idA, "yesterday"},
		{"sent too early", idA, strconv.FormatInt(now.Add(-maxSkew-time.Minute).Unix(), 10)},
		{"sent too late", idA, now.Add(maxSkew + time.Minute).Format(time.RFC3339)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(requestBody))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(caller.Header, borrower)
			if tt.reqID != "" {
				req.Header.Set(RequestIDHeader, tt.reqID)
			}
			if tt.sentAt != "" {
				req.Header.Set(SentAtHeader, tt.sentAt)
			}
			rec := httptest.NewRecorder()
			h.e.ServeHTTP(rec, req)
			mustStatus(t, rec, http.StatusBadRequest)
		})
	}
	if n := h.eventCount(t); n != 0 {
		t.Fatalf("rejected headers must not reach the ledger, events = %d", n)
	}
}

func TestReads_NeedNoHeaders(t *testing.T) {
	h := newHarness(t)
	mustStatus(t, h.call(t, http.MethodGet, "/events", "", "", ""), http.StatusOK)
}

func TestPendingCall_Conflicts(t *testing.T) {
	h := newHarness(t)
	key := replayKey(http.MethodPost, "/loans", borrower, idA)
	if err := h.mr.Set(key, `{"pending":true,"fingerprint":"`+fingerprint([]byte(requestBody))+`"}`); err != nil {
		t.Fatal(err)
	}
	rec := h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody)
	mustStatus(t, rec, http.StatusConflict)
	if !strings.Contains(rec.Body.String(), "in progress") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestStoreDown_Returns503(t *testing.T) {
	h := newHarness(t)
	h.mr.Close()
	mustStatus(t, h.call(t, http.MethodPost, "/loans", borrower, idA, requestBody), http.StatusServiceUnavailable)
}

func TestServerError_ReleasesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	e := echo.New()
	e.POST("/loans", func(c echo.Context) error {
		calls++
		if calls == 1 {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return c.JSON(http.StatusCreated, map[string]any{"loan_id": 0, "events": []map[string]any{{"seq": 1}}})
	}, Idempotency(NewReplayStore(rdb, time.Minute)))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(requestBody))
		req.Header.Set(caller.Header, borrower)
		req.Header.Set(RequestIDHeader, idA)
		req.Header.Set(SentAtHeader, time.Now().UTC().Format(time.RFC3339))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	mustStatus(t, send(), http.StatusInternalServerError)
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("key must be released after a server error, got %v", keys)
	}
	mustStatus(t, send(), http.StatusCreated)
	rec := send()
	if calls != 2 || !isReplay(rec) || rec.Header().Get(EventSeqsHeader) != "1" {
		t.Fatalf("calls=%d replay=%v seqs=%q", calls, isReplay(rec), rec.Header().Get(EventSeqsHeader))
	}
}
