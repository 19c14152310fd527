package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/rates"
	"github.com/aaron7k/wealth/internal/services"
	"github.com/aaron7k/wealth/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	converter := rates.NewConverter("")
	converter.SetRates(map[string]float64{"USD": 1.0, "MXN": 17.5, "EUR": 0.85})

	txSvc := services.NewTransactionService(repo, nil, converter)
	ledgerSvc := services.NewLedgerService(repo, converter)
	reportingSvc := services.NewReportingService(repo, converter)

	srv := NewServer(":0", "local", repo, txSvc, ledgerSvc, reportingSvc)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

// do runs one request through the full middleware chain and decodes the
// JSON response into out when it is non-nil.
func do(t *testing.T, srv *Server, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode response body: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec
}

func createTestAccount(t *testing.T, srv *Server, currency string, balance float64) accountResponse {
	t.Helper()
	var account accountResponse
	rec := do(t, srv, http.MethodPost, "/api/v1/accounts", map[string]any{
		"name":     "Checking",
		"type":     "checking",
		"balance":  balance,
		"currency": currency,
	}, &account)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account status = %d, body %s", rec.Code, rec.Body.String())
	}
	return account
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/readyz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Errorf("readyz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAccountLifecycle(t *testing.T) {
	srv := newTestServer(t)

	account := createTestAccount(t, srv, "USD", 1000.00)
	if account.ID == "" {
		t.Fatal("created account has no id")
	}
	if account.Balance.Cents != 100000 {
		t.Errorf("balance = %d cents, want 100000", account.Balance.Cents)
	}

	var fetched accountResponse
	rec := do(t, srv, http.MethodGet, "/api/v1/accounts/"+account.ID, nil, &fetched)
	if rec.Code != http.StatusOK {
		t.Fatalf("get account status = %d", rec.Code)
	}
	if fetched.Name != "Checking" || !fetched.IsActive {
		t.Errorf("fetched = %+v", fetched)
	}

	rec = do(t, srv, http.MethodDelete, "/api/v1/accounts/"+account.ID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/v1/accounts/"+account.ID, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}

	t.Run("rejects invalid currency", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/accounts", map[string]any{
			"name":     "Bad",
			"type":     "checking",
			"balance":  10.0,
			"currency": "usd",
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestTransactionEndpointAdjustsBalance(t *testing.T) {
	srv := newTestServer(t)
	account := createTestAccount(t, srv, "USD", 1000.00)

	var created transactionResponse
	rec := do(t, srv, http.MethodPost, "/api/v1/transactions", map[string]any{
		"description": "Groceries",
		"amount":      "120,50",
		"type":        "expense",
		"date":        "2025-07-10",
		"account_id":  account.ID,
	}, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %s", rec.Code, rec.Body.String())
	}
	if created.Amount.Cents != 12050 {
		t.Errorf("amount = %d cents, want 12050 (decimal comma accepted)", created.Amount.Cents)
	}

	var fetched accountResponse
	do(t, srv, http.MethodGet, "/api/v1/accounts/"+account.ID, nil, &fetched)
	if fetched.Balance.Cents != 87950 {
		t.Errorf("balance = %d cents, want 87950", fetched.Balance.Cents)
	}

	t.Run("filter by type", func(t *testing.T) {
		var txns []transactionResponse
		rec := do(t, srv, http.MethodGet, "/api/v1/transactions?type=expense", nil, &txns)
		if rec.Code != http.StatusOK || len(txns) != 1 {
			t.Errorf("status = %d, txns = %d", rec.Code, len(txns))
		}
	})

	t.Run("rejects unknown account", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/transactions", map[string]any{
			"description": "Ghost",
			"amount":      50.0,
			"type":        "expense",
			"date":        "2025-07-10",
			"account_id":  "nope",
		}, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("rejects overlong description", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/transactions", map[string]any{
			"description": strings.Repeat("x", 201),
			"amount":      50.0,
			"type":        "expense",
			"date":        "2025-07-10",
			"account_id":  account.ID,
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("rejects missing date", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/transactions", map[string]any{
			"description": "No date",
			"amount":      50.0,
			"type":        "expense",
			"account_id":  account.ID,
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestTransferEndpoint(t *testing.T) {
	srv := newTestServer(t)
	usd := createTestAccount(t, srv, "USD", 1000.00)

	var mxn accountResponse
	do(t, srv, http.MethodPost, "/api/v1/accounts", map[string]any{
		"name":     "Pesos",
		"type":     "savings",
		"balance":  0.0,
		"currency": "MXN",
	}, &mxn)

	var transfer transferResponse
	rec := do(t, srv, http.MethodPost, "/api/v1/transfers", map[string]any{
		"from_account_id": usd.ID,
		"to_account_id":   mxn.ID,
		"amount":          100.00,
		"date":            "2025-07-10",
	}, &transfer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer status = %d, body %s", rec.Code, rec.Body.String())
	}
	if transfer.Incoming.Amount.Cents != 175000 {
		t.Errorf("incoming = %d cents, want 175000", transfer.Incoming.Amount.Cents)
	}

	var from accountResponse
	do(t, srv, http.MethodGet, "/api/v1/accounts/"+usd.ID, nil, &from)
	if from.Balance.Cents != 90000 {
		t.Errorf("source balance = %d cents, want 90000", from.Balance.Cents)
	}

	t.Run("same account rejected", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/transfers", map[string]any{
			"from_account_id": usd.ID,
			"to_account_id":   usd.ID,
			"amount":          10.0,
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestGoalContributionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var goal goalResponse
	rec := do(t, srv, http.MethodPost, "/api/v1/goals", map[string]any{
		"name":     "Vacation",
		"target":   1500.00,
		"deadline": "2026-06-01",
	}, &goal)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/goals/"+goal.ID+"/contributions", map[string]any{
		"amount":         400.00,
		"contributed_at": "2025-07-01",
		"notes":          "bonus",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("contribution status = %d, body %s", rec.Code, rec.Body.String())
	}

	var fetched goalResponse
	do(t, srv, http.MethodGet, "/api/v1/goals/"+goal.ID, nil, &fetched)
	if fetched.Current.Cents != 40000 {
		t.Errorf("current = %d cents, want 40000", fetched.Current.Cents)
	}

	var contributions []contributionResponse
	do(t, srv, http.MethodGet, "/api/v1/goals/"+goal.ID+"/contributions", nil, &contributions)
	if len(contributions) != 1 || contributions[0].Notes != "bonus" {
		t.Errorf("contributions = %+v", contributions)
	}

	t.Run("missing goal returns 404", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/v1/goals/nope/contributions", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestProfileAndLedgerFlow(t *testing.T) {
	srv := newTestServer(t)

	var profile profileResponse
	rec := do(t, srv, http.MethodGet, "/api/v1/profile", nil, &profile)
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile status = %d", rec.Code)
	}
	if profile.TitheEnabled || profile.DefaultCurrency != "USD" {
		t.Errorf("default profile = %+v", profile)
	}

	rec = do(t, srv, http.MethodPut, "/api/v1/profile", map[string]any{
		"tithe_enabled":      true,
		"tithe_period":       "monthly",
		"auto_deduct_tithe":  false,
		"savings_percentage": 10,
		"default_currency":   "USD",
	}, &profile)
	if rec.Code != http.StatusOK || !profile.TitheEnabled {
		t.Fatalf("update profile = %d %+v", rec.Code, profile)
	}

	// A flagged income now accrues tithe and savings rows.
	account := createTestAccount(t, srv, "USD", 0)
	rec = do(t, srv, http.MethodPost, "/api/v1/transactions", map[string]any{
		"description":    "Salary",
		"amount":         500.00,
		"type":           "income",
		"date":           "2025-07-01",
		"account_id":     account.ID,
		"generate_tithe": true,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("income status = %d, body %s", rec.Code, rec.Body.String())
	}

	var diezmo ledgerOverviewResponse
	rec = do(t, srv, http.MethodGet, "/api/v1/ledger/diezmo", nil, &diezmo)
	if rec.Code != http.StatusOK {
		t.Fatalf("diezmo overview status = %d", rec.Code)
	}
	if len(diezmo.Entries) != 1 || diezmo.Pending.Cents != 5000 {
		t.Fatalf("diezmo overview = %+v", diezmo)
	}

	var savings ledgerOverviewResponse
	do(t, srv, http.MethodGet, "/api/v1/ledger/savings", nil, &savings)
	if len(savings.Entries) != 1 || savings.Pending.Cents != 4500 {
		t.Errorf("savings overview = %+v", savings)
	}

	t.Run("mark paid", func(t *testing.T) {
		var entry periodEntryResponse
		rec := do(t, srv, http.MethodPost, "/api/v1/ledger/"+diezmo.Entries[0].ID+"/pay",
			map[string]any{"paid_date": "2025-07-31"}, &entry)
		if rec.Code != http.StatusOK || !entry.IsPaid {
			t.Fatalf("pay = %d %+v", rec.Code, entry)
		}

		var after ledgerOverviewResponse
		do(t, srv, http.MethodGet, "/api/v1/ledger/diezmo", nil, &after)
		if after.Pending.Cents != 0 || after.Paid.Cents != 5000 {
			t.Errorf("totals after pay = %+v", after)
		}
	})

	t.Run("recalculate is stable", func(t *testing.T) {
		var entry periodEntryResponse
		rec := do(t, srv, http.MethodPost, "/api/v1/ledger/diezmo/recalculate", nil, &entry)
		if rec.Code != http.StatusOK {
			t.Fatalf("recalculate status = %d", rec.Code)
		}
	})

	t.Run("rejects out-of-range savings percentage", func(t *testing.T) {
		rec := do(t, srv, http.MethodPut, "/api/v1/profile", map[string]any{
			"tithe_enabled":      true,
			"tithe_period":       "monthly",
			"savings_percentage": 150,
			"default_currency":   "USD",
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestDashboardCaching(t *testing.T) {
	srv := newTestServer(t)
	account := createTestAccount(t, srv, "USD", 1000.00)

	rec := do(t, srv, http.MethodGet, "/api/v1/dashboard?month=2025-07", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("first read X-Cache = %q, want MISS", rec.Header().Get("X-Cache"))
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/dashboard?month=2025-07", nil, nil)
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second read X-Cache = %q, want HIT", rec.Header().Get("X-Cache"))
	}

	// A write in that month invalidates the cached summary.
	do(t, srv, http.MethodPost, "/api/v1/transactions", map[string]any{
		"description": "Rent",
		"amount":      800.00,
		"type":        "expense",
		"date":        "2025-07-02",
		"account_id":  account.ID,
	}, nil)

	var dashboard dashboardResponse
	rec = do(t, srv, http.MethodGet, "/api/v1/dashboard?month=2025-07", nil, &dashboard)
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("post-write read X-Cache = %q, want MISS", rec.Header().Get("X-Cache"))
	}
	if dashboard.MonthExpenses.Cents != 80000 {
		t.Errorf("month expenses = %d cents, want 80000", dashboard.MonthExpenses.Cents)
	}

	t.Run("invalid month rejected", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/v1/dashboard?month=July", nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestUserScoping(t *testing.T) {
	srv := newTestServer(t)
	account := createTestAccount(t, srv, "USD", 100.00)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+account.ID, nil)
	req.Header.Set(userIDHeader, "someone-else")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign user read status = %d, want 404", rec.Code)
	}
}

func TestRateLimiting(t *testing.T) {
	srv := newTestServer(t)

	body := func() *bytes.Buffer {
		return bytes.NewBufferString(`{"name":"Cash","type":"cash","balance":1.0,"currency":"USD"}`)
	}

	var limited bool
	for i := 0; i < rateLimitRequests+5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", body())
		req.Header.Set("X-Forwarded-For", "10.0.0.9")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if rec.Header().Get("Retry-After") != "60" {
				t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
			}
			break
		}
	}
	if !limited {
		t.Error("mutating requests were never rate limited")
	}

	t.Run("reads are not limited", func(t *testing.T) {
		for i := 0; i < rateLimitRequests+5; i++ {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			req.Header.Set("X-Forwarded-For", "10.0.0.9")
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, req)
			if rec.Code == http.StatusTooManyRequests {
				t.Fatalf("read %d was rate limited", i)
			}
		}
	})
}

func TestAmountJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"number", `12.34`, 1234, false},
		{"string with dot", `"12.34"`, 1234, false},
		{"string with comma", `"12,34"`, 1234, false},
		{"integer number", `100`, 10000, false},
		{"garbage string", `"abc"`, 0, true},
		{"negative string", `"-5.00"`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.input), &a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && a.Cents != tt.want {
				t.Errorf("Unmarshal(%s) = %d cents, want %d", tt.input, a.Cents, tt.want)
			}
		})
	}

	t.Run("marshal emits decimal", func(t *testing.T) {
		out, err := json.Marshal(Amount{})
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != "0" {
			t.Errorf("Marshal(zero) = %s", out)
		}
		out, _ = json.Marshal(struct {
			V Amount `json:"v"`
		}{V: Amount{Money: core.Money{Cents: 1234}}})
		if want := `{"v":12.34}`; string(out) != want {
			t.Errorf("Marshal = %s, want %s", out, want)
		}
	})
}
