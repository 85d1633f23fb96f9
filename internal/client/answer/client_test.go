package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAsk(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       string
		wantStatus int
		wantErr    error
	}{
		{name: "success", status: http.StatusOK, body: `{"answer":"Hi there"}`, want: "Hi there"},
		{name: "upstream failure", status: http.StatusInternalServerError, body: `{"answer":"Error fetching AI response"}`, wantStatus: http.StatusInternalServerError},
		{name: "invalid json", status: http.StatusOK, body: `{"answer":`, wantErr: ErrMalformedAnswer},
		{name: "missing answer", status: http.StatusOK, body: `{"text":"Hi"}`, wantErr: ErrMalformedAnswer},
		{name: "non string answer", status: http.StatusOK, body: `{"answer":42}`, wantErr: ErrMalformedAnswer},
		{name: "empty answer", status: http.StatusOK, body: `{"answer":"  "}`, wantErr: ErrMalformedAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var question string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/ask" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				var payload struct {
					Question string `json:"question"`
				}
				if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
					t.Errorf("decode request: %v", err)
				}
				question = payload.Question
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := New(srv.URL+"/").Ask(context.Background(), "Hello")
			if question != "Hello" {
				t.Fatalf("server saw question %q", question)
			}

			switch {
			case tt.wantStatus != 0:
				var statusErr *StatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.wantStatus {
					t.Fatalf("expected status error %d, got %v", tt.wantStatus, err)
				}
				if statusErr.Answer != "Error fetching AI response" {
					t.Fatalf("unexpected error answer %q", statusErr.Answer)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			default:
				if err != nil {
					t.Fatalf("Ask err: %v", err)
				}
				if got != tt.want {
					t.Fatalf("expected %q, got %q", tt.want, got)
				}
			}
		})
	}
}

func TestAskCancellation(t *testing.T) {
	arrived := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-arrived:
		case <-time.After(time.Second):
		}
		cancel()
	}()

	_, err := New(srv.URL).Ask(ctx, "Hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
