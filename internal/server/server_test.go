package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/KaramelBytes/finlens/internal/assistant"
	"github.com/KaramelBytes/finlens/internal/dataset"
)

// The zstd codecs parquet-go builds at package init keep decoder goroutines
// alive for the life of the process.
var leakOptions = []goleak.Option{
	goleak.IgnoreTopFunction("github.com/klauspost/compress/zstd.(*blockDec).startDecoder"),
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, append(leakOptions, goleak.IgnoreCurrent())...)
}

type staticData struct {
	ds  *dataset.Dataset
	err error
}

func (s staticData) Load(context.Context) (*dataset.Dataset, error) { return s.ds, s.err }

func fixture() *dataset.Dataset {
	return dataset.New("test", []dataset.Company{
		{ID: "C1", Industry: "Tech", Country: "Mexico", Size: "Large", TotalRevenue: 5e6, FinancialExpenses: 1e6, Equity: 3e6, CurrentRatio: 1.2, DebtToEquity: 0.5},
		{ID: "C2", Industry: "Retail", Country: "Chile", Size: "Small", TotalRevenue: 1e6, FinancialExpenses: 0, Equity: 5e5, CurrentRatio: 0.8, DebtToEquity: 2.0},
		{ID: "C3", Industry: "Tech", Country: "Chile", Size: "Medium", TotalRevenue: 8e6, FinancialExpenses: 2e6, Equity: 1e6, CurrentRatio: 2.1, DebtToEquity: 1.1},
		{ID: "C4", Industry: "Retail", Country: "Mexico", Size: "Large", TotalRevenue: 2e6, FinancialExpenses: 1e6, Equity: 4e6, CurrentRatio: 1.0, DebtToEquity: 0.3},
	})
}

type countingData struct {
	ds    *dataset.Dataset
	calls int32
}

func (c *countingData) Load(context.Context) (*dataset.Dataset, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.ds, nil
}

type countingAsker struct {
	calls  int32
	answer string
	err    error
}

func (a *countingAsker) Ask(_ context.Context, prompt string) (string, error) {
	atomic.AddInt32(&a.calls, 1)
	if a.err != nil {
		return "", a.err
	}
	return a.answer + prompt, nil
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	ds := fixture()
	s := New(staticData{ds: ds}, nil)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	got := decode[healthResponse](t, rec)
	assert.Equal(t, ds.ID(), got.SnapshotID)
	assert.Equal(t, 4, got.Records)
}

func TestRequestIDEchoed(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = do(t, s, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestFilters(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)
	rec := do(t, s, http.MethodGet, "/api/filters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[filtersResponse](t, rec)
	assert.Equal(t, []string{"Tech", "Retail"}, got.Industry)
	assert.Equal(t, []string{"Mexico", "Chile"}, got.Country)
	assert.Equal(t, []string{"Large", "Small", "Medium"}, got.CompanySize)
}

func TestCompaniesFiltering(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)

	cases := []struct {
		query string
		ids   []string
	}{
		{"", []string{"C1", "C2", "C3", "C4"}},
		{"?industry=Tech", []string{"C1", "C3"}},
		{"?industry=Tech,Retail&country=Chile", []string{"C2", "C3"}},
		{"?industry=Tech&industry=Retail&size=Large", []string{"C1", "C4"}},
		{"?country=Peru", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/companies"+tc.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var got struct {
				Count     int `json:"count"`
				Companies []struct {
					ID string `json:"Company_ID"`
				} `json:"companies"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			ids := []string{}
			for _, c := range got.Companies {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tc.ids, ids)
			assert.Equal(t, len(tc.ids), got.Count)
		})
	}
}

func TestCompaniesEncodesInfiniteCoverageAsNull(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)
	rec := do(t, s, http.MethodGet, "/api/companies?industry=Retail&country=Chile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Financial_Expenses_Coverage_Ratio":null`)
}

func TestTop(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)
	rec := do(t, s, http.MethodGet, "/api/top?column=Total_Revenue_Millions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Rows []struct {
			ID    string  `json:"Company_ID"`
			Value float64 `json:"value"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Rows, 3)
	assert.Equal(t, "C3", got.Rows[0].ID)
	assert.Equal(t, "C1", got.Rows[1].ID)
	assert.Equal(t, "C4", got.Rows[2].ID)
	assert.InDelta(t, 8.0, got.Rows[0].Value, 1e-9)

	rec = do(t, s, http.MethodGet, "/api/top?column=Equity&n=1&country=Chile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "C3", got.Rows[0].ID)
}

func TestTopRejectsBadInput(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)
	for _, q := range []string{"?column=Industry", "?column=Nope", "?n=-1", "?n=abc"} {
		rec := do(t, s, http.MethodGet, "/api/top"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.NotEmpty(t, decode[errorResponse](t, rec).Error, q)
	}
}

func TestBreakdown(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)
	rec := do(t, s, http.MethodGet, "/api/breakdown?value=Total_Revenue_Millions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		By     string  `json:"by"`
		Total  float64 `json:"total"`
		Groups []struct {
			Key   string  `json:"key"`
			Sum   float64 `json:"sum"`
			Count int     `json:"count"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Industry", got.By)
	require.Len(t, got.Groups, 2)
	assert.Equal(t, "Tech", got.Groups[0].Key)
	assert.InDelta(t, 13.0, got.Groups[0].Sum, 1e-9)
	assert.Equal(t, "Retail", got.Groups[1].Key)
	assert.InDelta(t, 3.0, got.Groups[1].Sum, 1e-9)
	assert.InDelta(t, 16.0, got.Total, 1e-9)

	rec = do(t, s, http.MethodGet, "/api/breakdown?value=Country", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/breakdown?value=Equity&by=Equity", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)
	rec := do(t, s, http.MethodGet, "/api/dashboard?size=Large", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Count   int `json:"count"`
		Filters struct {
			Industry string `json:"industry"`
			Size     string `json:"size"`
		} `json:"filters"`
		TopRevenue struct {
			Rows []json.RawMessage `json:"rows"`
		} `json:"top_revenue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "Todas", got.Filters.Industry)
	assert.Equal(t, "Large", got.Filters.Size)
	assert.Len(t, got.TopRevenue.Rows, 2)
}

func TestCharts(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)

	rec := do(t, s, http.MethodGet, "/api/charts/bar/Current_Ratio.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/api/charts/bar/Financial_Expenses_Coverage_Ratio.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Skipped-Values"))

	rec = do(t, s, http.MethodGet, "/api/charts/pie/Equity_Millions.png?by=Country", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = do(t, s, http.MethodGet, "/api/charts/pie/Equity_Millions.png?country=Peru", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/charts/bar/Industry.png", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardLoadsOnceAndFiltersOnce(t *testing.T) {
	data := &countingData{ds: fixture()}
	s := New(data, nil)
	rec := do(t, s, http.MethodGet, "/api/dashboard?industry=Tech&country=Chile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&data.calls))
	var got struct {
		Count      int `json:"count"`
		TopRevenue struct {
			Rows []struct {
				ID string `json:"Company_ID"`
			} `json:"rows"`
		} `json:"top_revenue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.TopRevenue.Rows, 1)
	assert.Equal(t, "C3", got.TopRevenue.Rows[0].ID)
}

func TestDatasetUnavailable(t *testing.T) {
	err := &dataset.UnavailableError{Source: "x.csv", Err: errors.New("boom")}
	s := New(staticData{err: err}, nil)
	for _, path := range []string{"/healthz", "/api/filters", "/api/companies", "/api/dashboard"} {
		rec := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestAsk(t *testing.T) {
	asker := &countingAsker{answer: "respuesta: "}
	s := New(staticData{ds: fixture()}, asker)

	rec := do(t, s, http.MethodPost, "/api/ask", strings.NewReader(`{"prompt":"¿solvencia?"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "respuesta: ¿solvencia?", decode[askResponse](t, rec).Answer)
	assert.EqualValues(t, 1, atomic.LoadInt32(&asker.calls))
}

func TestAskEmptyPromptNeverCallsAssistant(t *testing.T) {
	asker := &countingAsker{answer: "x"}
	s := New(staticData{ds: fixture()}, asker)
	for _, body := range []string{`{"prompt":""}`, `{"prompt":"   "}`, `{}`, ``} {
		rec := do(t, s, http.MethodPost, "/api/ask", strings.NewReader(body))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, assistant.EmptyPromptMessage, decode[errorResponse](t, rec).Error)
	}
	assert.Zero(t, atomic.LoadInt32(&asker.calls))
}

func TestAskErrors(t *testing.T) {
	unavailable := &assistant.UnavailableError{Provider: "openai", Err: errors.New("401")}
	cases := []struct {
		name   string
		asker  assistant.Asker
		body   string
		status int
	}{
		{"unavailable", &countingAsker{err: unavailable}, `{"prompt":"hola"}`, http.StatusBadGateway},
		{"too long", &countingAsker{err: fmt.Errorf("%w: big", assistant.ErrPromptTooLong)}, `{"prompt":"hola"}`, http.StatusBadRequest},
		{"no assistant", nil, `{"prompt":"hola"}`, http.StatusBadGateway},
		{"bad json", &countingAsker{}, `{"prompt":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(staticData{ds: fixture()}, tc.asker)
			rec := do(t, s, http.MethodPost, "/api/ask", strings.NewReader(tc.body))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, append(leakOptions, goleak.IgnoreCurrent())...)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: cannot open local listener (%v)", err)
	}
	s := New(staticData{ds: fixture()}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestDescribe(t *testing.T) {
	s := New(staticData{ds: fixture()}, nil)
	rec := do(t, s, http.MethodGet, "/api/describe?column=Equity_Millions,Financial_Expenses_Coverage_Ratio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []struct {
		Column    string  `json:"column"`
		Count     int     `json:"count"`
		NonFinite int     `json:"non_finite"`
		Max       float64 `json:"max"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Equity_Millions", got[0].Column)
	assert.Equal(t, 4, got[0].Count)
	assert.InDelta(t, 4.0, got[0].Max, 1e-9)
	assert.Equal(t, 3, got[1].Count)
	assert.Equal(t, 1, got[1].NonFinite)

	rec = do(t, s, http.MethodGet, "/api/describe?column=Country", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
