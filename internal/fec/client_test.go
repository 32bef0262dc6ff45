package fec

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sync/atomic"
	"testing"
)

func contributionJSON(occupation, zip any, party string) map[string]any {
	return map[string]any{
		"contributor_occupation": occupation,
		"contributor_employer":   "Acme Corp",
		"contributor_city":       "Boston",
		"contributor_state":      "MA",
		"contributor_zip":        zip,
		"committee":              map[string]any{"party": party},
	}
}

func TestPageBuildsQueryAndParsesResponse(t *testing.T) {
	var captured url.Values
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.Query()
		path = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				contributionJSON("Self Employed", "02139", "DEM"),
				contributionJSON(nil, "N/A", "REP"),
				contributionJSON("Retired", 94107, "DEM"),
			},
			"pagination": map[string]any{
				"count":    1234,
				"pages":    13,
				"per_page": 100,
				"last_indexes": map[string]any{
					"last_index":                     4052020123,
					"last_contribution_receipt_date": "2020-03-01",
				},
			},
		})
	}))
	defer server.Close()

	client, err := New(Query{APIKey: "key", Cycle: "2016", CommitteeType: "S"}, WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	page, err := client.Page(context.Background(), Cursor{LastIndex: "99", LastDate: "2020-04-01"})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}

	if path != "/schedules/schedule_a/" {
		t.Fatalf("path = %q", path)
	}
	want := map[string]string{
		"api_key":                        "key",
		"two_year_transaction_period":    "2016",
		"recipient_committee_type":       "S",
		"sort":                           "-contribution_receipt_date",
		"is_individual":                  "true",
		"contributor_type":               "individual",
		"per_page":                       "100",
		"last_index":                     "99",
		"last_contribution_receipt_date": "2020-04-01",
	}
	for key, value := range want {
		if got := captured.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}

	wantRows := []Contribution{
		{Occupation: "Self Employed", Employer: "Acme Corp", City: "Boston", State: "MA", Zip: "02139", Party: "DEM"},
		{Occupation: "", Employer: "Acme Corp", City: "Boston", State: "MA", Zip: ZipSentinel, Party: "REP"},
		{Occupation: "Retired", Employer: "Acme Corp", City: "Boston", State: "MA", Zip: "94107", Party: "DEM"},
	}
	if !reflect.DeepEqual(page.Contributions, wantRows) {
		t.Fatalf("contributions = %+v", page.Contributions)
	}
	if page.Next != (Cursor{LastIndex: "4052020123", LastDate: "2020-03-01"}) {
		t.Fatalf("next cursor = %+v", page.Next)
	}
	if page.Pages != 13 || page.Count != 1234 {
		t.Fatalf("pagination = %d pages, %d count", page.Pages, page.Count)
	}
}

func TestFirstPageOmitsCursor(t *testing.T) {
	var captured url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.Query()
		_, _ = w.Write([]byte(`{"results":[],"pagination":{"pages":7,"count":650}}`))
	}))
	defer server.Close()

	client, err := New(Query{APIKey: "key", Cycle: "2020", CommitteeType: "P", PerPage: 50}, WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pages, err := client.TotalPages(context.Background())
	if err != nil {
		t.Fatalf("TotalPages: %v", err)
	}
	if pages != 7 {
		t.Fatalf("pages = %d, want 7", pages)
	}
	if captured.Has("last_index") || captured.Has("last_contribution_receipt_date") {
		t.Fatalf("first page sent a cursor: %v", captured)
	}
	if captured.Get("per_page") != "50" {
		t.Fatalf("per_page = %q", captured.Get("per_page"))
	}
}

func TestPageReportsQuotaAndServerErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error":{"code":"OVER_RATE_LIMIT"}}`))
	}))
	defer server.Close()

	client, err := New(Query{APIKey: "key"}, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Page(context.Background(), Cursor{}); !errors.Is(err, ErrQuota) {
		t.Fatalf("error = %v, want ErrQuota", err)
	}

	status.Store(http.StatusInternalServerError)
	_, err = client.Page(context.Background(), Cursor{})
	if err == nil || errors.Is(err, ErrQuota) {
		t.Fatalf("error = %v, want non-quota failure", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Query{APIKey: "  "}); err == nil {
		t.Fatal("expected error without api key")
	}
}
