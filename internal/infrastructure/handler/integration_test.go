package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/fintrack/internal/application/service"
	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/infrastructure/api"
	"github.com/damon-houk/fintrack/internal/infrastructure/db"
	"github.com/damon-houk/fintrack/internal/infrastructure/handler"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// newUpstream fakes the rates API: USD succeeds, IDR is rejected, GBP hangs
func newUpstream(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/latest/USD":
			w.Write([]byte(`{"result":"success","base_code":"USD","time_last_update_unix":1714521600,
				"rates":{"USD":1,"EUR":0.92,"JPY":151.37}}`))
		case "/latest/IDR":
			w.Write([]byte(`{"result":"error","error-type":"invalid-base"}`))
		case "/latest/GBP":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// setupTestServer wires the full stack over a temp-dir badger database
func setupTestServer(t *testing.T) *httptest.Server {
	log := logger.NewNopLogger()

	badgerDB, err := db.OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { badgerDB.Close() })

	upstream := newUpstream(t)
	client := api.NewRatesAPIClient(
		api.WithBaseURL(upstream.URL),
		api.WithRetries(1),
		api.WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}),
		api.WithLogger(log),
	)

	rateStore := db.NewBadgerRateStore(badgerDB, log)
	ledgerRepo := db.NewBadgerLedgerRepository(badgerDB)

	fetcher := service.NewRateFetcher(client, rateStore, 4, log, nil)
	resolver := service.NewRateResolver(rateStore, log, nil)
	converter := service.NewCurrencyConverter(resolver, log, nil)
	ledger := service.NewLedgerService(ledgerRepo, log)
	watchlist := service.NewWatchlistService(ledgerRepo, ledgerRepo, log)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	handler.NewRateHandler(fetcher, resolver, log).RegisterRoutes(router)
	handler.NewConversionHandler(converter, log).RegisterRoutes(router)
	handler.NewLedgerHandler(ledger, watchlist, log).RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRefreshResolveAndConvert(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := setupTestServer(t)

	// Step 1: Refresh USD
	resp := postJSON(t, server.URL+"/rates/usd/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refresh handler.RefreshResponse
	decode(t, resp, &refresh)
	assert.Equal(t, "USD", refresh.Base)
	assert.Equal(t, []string{"EUR", "JPY"}, refresh.Upserted)
	assert.Equal(t, "2024-05-01T00:00:00Z", refresh.AsOf)
	assert.Empty(t, refresh.Failed)

	// Refreshing again is harmless
	resp = postJSON(t, server.URL+"/rates/USD/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list handler.RateListResponse
	resp = get(t, server.URL+"/rates/usd")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	assert.Equal(t, "USD", list.Base)
	require.Len(t, list.Rates, 2)
	assert.Equal(t, "EUR", list.Rates[0].To)
	assert.Equal(t, "151.37", list.Rates[1].Rate)
	assert.Equal(t, "2024-05-01T00:00:00Z", list.Rates[1].AsOf)

	list = handler.RateListResponse{}
	resp = get(t, server.URL+"/rates/GBP")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	assert.Equal(t, "GBP", list.Base)
	assert.Empty(t, list.Rates)

	// Step 2: Resolve direct, inverse and identity
	var rate handler.RateResponse
	resp = get(t, server.URL+"/rates/USD/EUR")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &rate)
	assert.Equal(t, "0.92", rate.Rate)
	assert.False(t, rate.Inverted)

	rate = handler.RateResponse{}
	resp = get(t, server.URL+"/rates/EUR/USD")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &rate)
	assert.True(t, rate.Inverted)
	assert.Equal(t, "1.0869565217391304", rate.Rate)

	rate = handler.RateResponse{}
	resp = get(t, server.URL+"/rates/chf/CHF")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &rate)
	assert.True(t, rate.Identity)
	assert.Equal(t, "1", rate.Rate)

	resp = get(t, server.URL+"/rates/USD/CHF")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = get(t, server.URL+"/rates/USD/EURO")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Step 3: Convert with and without a rate
	var conv handler.ConversionResponse
	resp = get(t, server.URL+"/convert?amount=10000&from=USD&to=EUR")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &conv)
	assert.True(t, conv.Converted)
	assert.Equal(t, int64(9200), conv.Result)
	assert.Equal(t, "USD 100.00", conv.Display)
	assert.Equal(t, "EUR 92.00", conv.ResultDisplay)

	// Yen has no minor units: one dollar is about 151 yen
	conv = handler.ConversionResponse{}
	resp = get(t, server.URL+"/convert?amount=100&from=USD&to=JPY")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &conv)
	assert.True(t, conv.Converted)
	assert.Equal(t, int64(151), conv.Result)
	assert.Equal(t, "USD 1.00", conv.Display)
	assert.Equal(t, "JPY 151", conv.ResultDisplay)

	conv = handler.ConversionResponse{}
	resp = get(t, server.URL+"/convert?amount=10000&from=USD&to=CHF")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &conv)
	assert.False(t, conv.Converted)
	assert.Equal(t, int64(10000), conv.Result)
	assert.Equal(t, "USD 100.00", conv.ResultDisplay)

	resp = get(t, server.URL+"/convert?amount=ten&from=USD&to=EUR")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := setupTestServer(t)

	t.Run("Upstream rejects base", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/rates/IDR/refresh", "")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var errResp handler.ErrorResponse
		decode(t, resp, &errResp)
		assert.Equal(t, "upstream", errResp.Kind)
		assert.Contains(t, errResp.Description, "invalid-base")
		assert.NotEmpty(t, errResp.RequestID)

		// Nothing was stored
		resp = get(t, server.URL+"/rates/IDR/USD")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Upstream times out", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/rates/GBP/refresh", "")
		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

		var errResp handler.ErrorResponse
		decode(t, resp, &errResp)
		assert.Equal(t, "timeout", errResp.Kind)
	})

	t.Run("Invalid base", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/rates/XX/refresh", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLedgerAndWatchlist(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := setupTestServer(t)
	base := server.URL + "/users/u1"

	// Step 1: Create a budgeted category
	resp := postJSON(t, base+"/categories", `{"name":"Groceries","type":"expense","monthly_budget":100000,"icon":"cart"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created handler.CreatedResponse
	decode(t, resp, &created)
	require.NotEmpty(t, created.ID)

	resp = postJSON(t, base+"/categories", `{"name":"Unbudgeted","type":"expense"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Step 2: Spend 95% of it in May, plus noise outside the window
	for _, body := range []string{
		`{"category_id":"` + created.ID + `","amount":60000,"type":"expense","date":"2024-05-02","description":"Market"}`,
		`{"category_id":"` + created.ID + `","amount":35000,"type":"expense","date":"2024-05-31","description":"Market"}`,
		`{"category_id":"` + created.ID + `","amount":50000,"type":"expense","date":"2024-06-01","description":"June"}`,
		`{"category_id":"` + created.ID + `","amount":50000,"type":"income","date":"2024-05-10","description":"Refund"}`,
	} {
		resp = postJSON(t, base+"/transactions", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	}

	// Step 3: Read the watchlist
	resp = get(t, base+"/watchlist?month=2024-05")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var watchlist handler.WatchlistResponse
	decode(t, resp, &watchlist)
	assert.Equal(t, "2024-05", watchlist.Month)
	require.Len(t, watchlist.Items, 1)

	item := watchlist.Items[0]
	assert.Equal(t, created.ID, item.CategoryID)
	assert.Equal(t, "Groceries", item.CategoryName)
	assert.Equal(t, "cart", item.CategoryIcon)
	assert.Equal(t, int64(95000), item.Spent)
	assert.Equal(t, 95.0, item.Percentage)
	assert.Equal(t, int64(5000), item.Remaining)
	assert.Equal(t, entity.TierDanger, item.Status)

	// June holds a single 50% expense
	resp = get(t, base+"/watchlist?month=2024-06")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	watchlist = handler.WatchlistResponse{}
	decode(t, resp, &watchlist)
	assert.Empty(t, watchlist.Items)

	// Listing returns May's transactions oldest first
	resp = get(t, base+"/transactions?month=2024-05")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []handler.TransactionResponse
	decode(t, resp, &listed)
	require.Len(t, listed, 3)
	assert.Equal(t, "2024-05-02", listed[0].Date)
	assert.Equal(t, "2024-05-31", listed[2].Date)

	// Other users see nothing
	resp = get(t, server.URL+"/users/u2/watchlist?month=2024-05")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLedgerErrorHandling(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := setupTestServer(t)
	base := server.URL + "/users/u1"

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"Malformed JSON", "/transactions", `{"amount":`, http.StatusBadRequest},
		{"Invalid date", "/transactions", `{"amount":100,"type":"expense","date":"invalid-date"}`, http.StatusBadRequest},
		{"Future date", "/transactions", `{"amount":100,"type":"expense","date":"2999-01-01"}`, http.StatusBadRequest},
		{"Zero amount", "/transactions", `{"amount":0,"type":"expense","date":"2024-05-01"}`, http.StatusBadRequest},
		{"Unknown type", "/transactions", `{"amount":10,"type":"gift","date":"2024-05-01"}`, http.StatusBadRequest},
		{"Unknown category", "/transactions", `{"category_id":"nope","amount":10,"type":"expense","date":"2024-05-01"}`, http.StatusNotFound},
		{"Category without name", "/categories", `{"type":"expense"}`, http.StatusBadRequest},
		{"Negative budget", "/categories", `{"name":"Rent","type":"expense","monthly_budget":-1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, base+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var errResp handler.ErrorResponse
			decode(t, resp, &errResp)
			assert.Equal(t, tt.status, errResp.Status)
		})
	}

	resp := get(t, base+"/watchlist?month=May")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
