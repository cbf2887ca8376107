package dataforseo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, rateLimit int) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClientWithConfig("login@example.com", "secret", ClientConfig{
		RateLimit: rateLimit,
		BaseURL:   server.URL,
	})
	if err := client.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, server
}

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
}

const flatFixture = `{
	"status_code": 20000,
	"status_message": "Ok.",
	"tasks": [{
		"status_code": 20000,
		"status_message": "Ok.",
		"result": [
			{
				"keyword": "artificial intelligence",
				"search_volume": 550000,
				"location_code": 2840,
				"language_code": "en",
				"use_clickstream": true,
				"monthly_searches": [
					{"year": 2025, "month": 7, "search_volume": 610000},
					{"year": 2025, "month": 3, "search_volume": 480000},
					{"year": 2025, "month": 5, "search_volume": 520000}
				]
			},
			{
				"keyword": "machine learning",
				"search_volume": 301000,
				"location_code": 2840,
				"language_code": "en",
				"monthly_searches": []
			}
		]
	}]
}`

func validSearchVolumeRequest(keywords ...string) SearchVolumeRequest {
	if len(keywords) == 0 {
		keywords = []string{"artificial intelligence"}
	}
	return SearchVolumeRequest{
		Keywords:     keywords,
		LocationName: "United States",
		LanguageName: "English",
	}
}

func TestSearchVolume_ValidationNoNetworkCall(t *testing.T) {
	var hits atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), 2)

	tooMany := make([]string, 1001)
	for i := range tooMany {
		tooMany[i] = "keyword"
	}

	cases := []struct {
		name string
		req  SearchVolumeRequest
	}{
		{"empty keywords", SearchVolumeRequest{LocationName: "United States", LanguageName: "English"}},
		{"too many keywords", SearchVolumeRequest{Keywords: tooMany, LocationName: "United States", LanguageName: "English"}},
		{"missing location", SearchVolumeRequest{Keywords: []string{"ai"}, LanguageName: "English"}},
		{"missing language", SearchVolumeRequest{Keywords: []string{"ai"}, LocationName: "United States"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.SearchVolume(context.Background(), tc.req)
			var invalid *InvalidArgumentError
			if !errors.As(err, &invalid) {
				t.Errorf("Expected InvalidArgumentError, got %v", err)
			}
		})
	}

	if hits.Load() != 0 {
		t.Errorf("Expected no network calls, got %d", hits.Load())
	}
}

func TestGlobalSearchVolume_ShortKeywordRejected(t *testing.T) {
	var hits atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), 2)

	_, err := client.GlobalSearchVolume(context.Background(), GlobalSearchVolumeRequest{
		Keywords: []string{"nvidia", "ai"},
	})

	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidArgumentError, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("Expected no network calls, got %d", hits.Load())
	}
}

func TestGlobalSearchVolume_KeywordLengthCountsRunes(t *testing.T) {
	var hits atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), 2)

	// Two runes but six bytes; the length floor is per character.
	_, err := client.GlobalSearchVolume(context.Background(), GlobalSearchVolumeRequest{
		Keywords: []string{"日本"},
	})

	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidArgumentError, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("Expected no network calls, got %d", hits.Load())
	}
}

func TestSearchVolume_ParsesFixtureVerbatim(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(flatFixture), 2)

	results, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())
	if err != nil {
		t.Fatalf("SearchVolume failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.Keyword != "artificial intelligence" {
		t.Errorf("Keyword mismatch: %q", first.Keyword)
	}
	if first.SearchVolume == nil || *first.SearchVolume != 550000 {
		t.Errorf("SearchVolume mismatch: %v", first.SearchVolume)
	}
	if first.LocationCode == nil || *first.LocationCode != 2840 {
		t.Errorf("LocationCode mismatch: %v", first.LocationCode)
	}
	if first.LanguageCode != "en" {
		t.Errorf("LanguageCode mismatch: %q", first.LanguageCode)
	}

	// Provider order must survive untouched: the fixture is deliberately
	// not chronological.
	wantMonths := []MonthlySearch{
		{Year: 2025, Month: 7, SearchVolume: 610000},
		{Year: 2025, Month: 3, SearchVolume: 480000},
		{Year: 2025, Month: 5, SearchVolume: 520000},
	}
	if !reflect.DeepEqual(first.MonthlySearches, wantMonths) {
		t.Errorf("MonthlySearches reordered or altered: %+v", first.MonthlySearches)
	}
}

func TestSearchVolume_NullVolumeDistinctFromZero(t *testing.T) {
	fixture := `{
		"status_code": 20000, "status_message": "Ok.",
		"tasks": [{
			"status_code": 20000, "status_message": "Ok.",
			"result": [
				{"keyword": "null volume", "search_volume": null},
				{"keyword": "zero volume", "search_volume": 0},
				{"keyword": "no volume key"},
				{"search_volume": 10}
			]
		}]
	}`
	client, _ := newTestClient(t, jsonHandler(fixture), 2)

	results, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())
	if err != nil {
		t.Fatalf("SearchVolume failed: %v", err)
	}

	// Items missing keyword or search_volume are dropped; null is kept.
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].SearchVolume != nil {
		t.Errorf("Expected nil volume for null, got %d", *results[0].SearchVolume)
	}
	if results[1].SearchVolume == nil || *results[1].SearchVolume != 0 {
		t.Errorf("Expected zero volume, got %v", results[1].SearchVolume)
	}
}

func TestSearchVolume_ProviderErrorFromEnvelope(t *testing.T) {
	fixture := `{"status_code": 40101, "status_message": "Auth error.", "tasks": []}`
	client, _ := newTestClient(t, jsonHandler(fixture), 2)

	_, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if provErr.StatusCode != 40101 || provErr.StatusMessage != "Auth error." {
		t.Errorf("ProviderError fields wrong: %+v", provErr)
	}
}

func TestSearchVolume_FailingTaskSkippedNotFatal(t *testing.T) {
	fixture := `{
		"status_code": 20000, "status_message": "Ok.",
		"tasks": [
			{
				"status_code": 40501, "status_message": "Invalid field.",
				"result": [{"keyword": "lost", "search_volume": 1}]
			},
			{
				"status_code": 20000, "status_message": "Ok.",
				"result": [{"keyword": "kept", "search_volume": 42}]
			}
		]
	}`
	client, _ := newTestClient(t, jsonHandler(fixture), 2)

	results, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())
	if err != nil {
		t.Fatalf("Expected partial success, got error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result from the succeeding task, got %d", len(results))
	}
	if results[0].Keyword != "kept" {
		t.Errorf("Wrong task's results kept: %+v", results[0])
	}
}

func TestSearchVolume_Idempotent(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(flatFixture), 2)

	first, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	second, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Results differ between identical calls:\n%+v\n%+v", first, second)
	}
}

func TestSearchVolume_PayloadShape(t *testing.T) {
	var captured []map[string]interface{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Payload not a JSON array: %v", err)
		}
		w.Write([]byte(`{"status_code": 20000, "status_message": "Ok.", "tasks": []}`))
	})
	client, _ := newTestClient(t, handler, 2)

	_, err := client.SearchVolume(context.Background(), SearchVolumeRequest{
		Keywords:     []string{"nvidia"},
		LocationName: "United States",
		LocationCode: 2840,
		LanguageCode: "en",
		Tag:          "batch_7",
	})
	if err != nil {
		t.Fatalf("SearchVolume failed: %v", err)
	}

	if len(captured) != 1 {
		t.Fatalf("Expected single-task payload, got %d tasks", len(captured))
	}
	task := captured[0]

	// Name takes precedence over code, and the code must then be absent.
	if task["location_name"] != "United States" {
		t.Errorf("location_name missing or wrong: %v", task["location_name"])
	}
	if _, ok := task["location_code"]; ok {
		t.Error("location_code should be omitted when location_name is set")
	}
	if task["language_code"] != "en" {
		t.Errorf("language_code missing or wrong: %v", task["language_code"])
	}
	if task["use_clickstream"] != true {
		t.Errorf("use_clickstream should default to true, got %v", task["use_clickstream"])
	}
	if task["tag"] != "batch_7" {
		t.Errorf("tag missing or wrong: %v", task["tag"])
	}
}

func TestSearchVolume_BasicAuthHeader(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status_code": 20000, "status_message": "Ok.", "tasks": []}`))
	})
	client, _ := newTestClient(t, handler, 2)

	if _, err := client.SearchVolume(context.Background(), validSearchVolumeRequest()); err != nil {
		t.Fatalf("SearchVolume failed: %v", err)
	}

	// base64("login@example.com:secret")
	want := "Basic bG9naW5AZXhhbXBsZS5jb206c2VjcmV0"
	if gotAuth != want {
		t.Errorf("Authorization header = %q, want %q", gotAuth, want)
	}
}

func TestGlobalSearchVolume_NestedItemsParsing(t *testing.T) {
	fixture := `{
		"status_code": 20000, "status_message": "Ok.",
		"tasks": [{
			"status_code": 20000, "status_message": "Ok.",
			"result": [{
				"items": [{
					"keyword": "nvidia",
					"search_volume": 9140000,
					"country_distribution": [
						{"country_iso_code": "US", "search_volume": 2280000, "percentage": 24.9},
						{"country_iso_code": "IN", "search_volume": 913000, "percentage": 10.0}
					]
				}]
			}]
		}]
	}`
	client, _ := newTestClient(t, jsonHandler(fixture), 2)

	results, err := client.GlobalSearchVolume(context.Background(), GlobalSearchVolumeRequest{
		Keywords: []string{"nvidia"},
	})
	if err != nil {
		t.Fatalf("GlobalSearchVolume failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	got := results[0]
	if got.Keyword != "nvidia" || got.SearchVolume != 9140000 {
		t.Errorf("Result mismatch: %+v", got)
	}
	if len(got.CountryDistribution) != 2 || got.CountryDistribution[0].CountryISOCode != "US" {
		t.Errorf("Country distribution order not preserved: %+v", got.CountryDistribution)
	}
}

func TestSearchVolumeByLocation_TaskLevelLocationCode(t *testing.T) {
	fixture := `{
		"status_code": 20000, "status_message": "Ok.",
		"tasks": [{
			"status_code": 20000, "status_message": "Ok.",
			"result": [{
				"location_code": 2840,
				"items": [{
					"keyword": "nvidia",
					"search_volume": 2280000,
					"monthly_searches": [
						{"year": 2025, "month": 6, "search_volume": 2400000},
						{"year": 2025, "month": 2, "search_volume": 2100000}
					]
				}]
			}]
		}]
	}`
	client, _ := newTestClient(t, jsonHandler(fixture), 2)

	results, err := client.SearchVolumeByLocation(context.Background(), SearchVolumeByLocationRequest{
		Keywords:     []string{"nvidia"},
		LocationCode: 2840,
	})
	if err != nil {
		t.Fatalf("SearchVolumeByLocation failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	got := results[0]
	if got.LocationCode == nil || *got.LocationCode != 2840 {
		t.Errorf("Task-level location_code not carried onto item: %+v", got.LocationCode)
	}
	if len(got.MonthlySearches) != 2 || got.MonthlySearches[0].Month != 6 {
		t.Errorf("Monthly searches reordered or lost: %+v", got.MonthlySearches)
	}
}

func TestLocationsAndLanguages_RawPassThrough(t *testing.T) {
	fixture := `{
		"status_code": 20000, "status_message": "Ok.",
		"tasks": [{"status_code": 20000, "result": [{"location_code": 2840, "available_languages": ["en"]}]}]
	}`
	var gotMethod string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte(fixture))
	})
	client, _ := newTestClient(t, handler, 2)

	raw, err := client.LocationsAndLanguages(context.Background())
	if err != nil {
		t.Fatalf("LocationsAndLanguages failed: %v", err)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("Expected GET, got %s", gotMethod)
	}
	if raw["status_code"] != float64(20000) {
		t.Errorf("Raw envelope missing status_code: %v", raw["status_code"])
	}
	if _, ok := raw["tasks"]; !ok {
		t.Error("Raw envelope missing tasks")
	}
}

func TestClient_NotInitialized(t *testing.T) {
	client := NewClient("login@example.com", "secret")

	_, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())
	if !errors.Is(err, ErrClientNotInitialized) {
		t.Errorf("Expected ErrClientNotInitialized before Open, got %v", err)
	}

	if err := client.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err = client.SearchVolume(context.Background(), validSearchVolumeRequest())
	if !errors.Is(err, ErrClientNotInitialized) {
		t.Errorf("Expected ErrClientNotInitialized after Close, got %v", err)
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client := NewClient("login@example.com", "secret")
	if err := client.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("First Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}

func TestClient_DoubleOpenRejected(t *testing.T) {
	client := NewClient("login@example.com", "secret")
	if err := client.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer client.Close()

	if err := client.Open(); err == nil {
		t.Error("Second Open should fail")
	}
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(jsonHandler("{}"))
	serverURL := server.URL
	server.Close() // connection refused from here on

	client := NewClientWithConfig("login@example.com", "secret", ClientConfig{
		BaseURL: serverURL,
	})
	if err := client.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer client.Close()

	_, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected RequestError, got %v", err)
	}
	if reqErr.Unwrap() == nil {
		t.Error("RequestError should carry the underlying cause")
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}), 2)

	_, err := client.SearchVolume(context.Background(), validSearchVolumeRequest())
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedResponseError, got %v", err)
	}
}

func TestClient_ConcurrencyBound(t *testing.T) {
	const rateLimit = 3

	var inFlight, maxInFlight atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := inFlight.Add(1)
		for {
			seen := maxInFlight.Load()
			if current <= seen || maxInFlight.CompareAndSwap(seen, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
		w.Write([]byte(`{"status_code": 20000, "status_message": "Ok.", "tasks": []}`))
	})
	client, _ := newTestClient(t, handler, rateLimit)

	var wg sync.WaitGroup
	for i := 0; i < rateLimit+3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.SearchVolume(context.Background(), validSearchVolumeRequest()); err != nil {
				t.Errorf("Concurrent call failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := maxInFlight.Load(); got > rateLimit {
		t.Errorf("In-flight requests exceeded gate: %d > %d", got, rateLimit)
	}
}

func TestClient_GateReleasedAfterError(t *testing.T) {
	// A provider error on every request must still release the gate slot,
	// otherwise the third call here would block forever.
	fixture := `{"status_code": 50000, "status_message": "Internal error.", "tasks": []}`
	client, _ := newTestClient(t, jsonHandler(fixture), 1)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := client.SearchVolume(ctx, validSearchVolumeRequest())
		cancel()

		var provErr *ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("Call %d: expected ProviderError, got %v", i, err)
		}
	}
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{StatusCode: 40401, StatusMessage: "Not found."}
	if !strings.Contains(err.Error(), "40401") || !strings.Contains(err.Error(), "Not found.") {
		t.Errorf("Error message should carry code and message: %q", err.Error())
	}
}
