package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"okrdash/internal/service"
	"okrdash/internal/store"
	"okrdash/internal/timeline"
)

func TestRoutesMountAPI(t *testing.T) {
	kv := store.NewMemory()
	svc, err := service.New(kv, service.Options{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.Load(context.Background())
	server := httptest.NewServer(NewServer(svc, timeline.New(kv, svc, nil), nil).Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/v1/departments")
	if err != nil {
		t.Fatalf("departments: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	var body struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 5 || body.Items[0].ID != "engineering" {
		t.Fatalf("unexpected departments %+v", body.Items)
	}
}
