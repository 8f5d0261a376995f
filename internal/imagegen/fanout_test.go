package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeProviderHarness emulates the KIE API plus the webhook relay in one test
// fixture. Submitting a task "completes" it by appending the configured
// notification to that task's callback channel.
type fakeProviderHarness struct {
	t *testing.T

	mu            sync.Mutex
	uploads       int
	submitted     []string
	channels      int
	notifications map[string][]string

	failUpload bool
	// notificationFor decides what lands on a model's channel; returning ""
	// leaves the channel silent forever.
	notificationFor func(model string) string

	kieSrv   *httptest.Server
	relaySrv *httptest.Server
}

func newFakeProviderHarness(t *testing.T) *fakeProviderHarness {
	t.Helper()
	h := &fakeProviderHarness{
		t:             t,
		notifications: map[string][]string{},
		notificationFor: func(model string) string {
			return fmt.Sprintf(`{"data":{"state":"success","resultUrls":["https://x/%s"]}}`, model)
		},
	}

	h.relaySrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/token":
			h.mu.Lock()
			h.channels++
			id := fmt.Sprintf("chan-%d", h.channels)
			h.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(tokenResp{UUID: id})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/requests"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/token/"), "/requests")
			h.mu.Lock()
			bodies := append([]string(nil), h.notifications[id]...)
			h.mu.Unlock()
			var resp requestsResp
			for _, body := range bodies {
				resp.Data = append(resp.Data, struct {
					Content string `json:"content"`
				}{Content: body})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected relay request: %s %s", r.Method, r.URL.Path)
		}
	}))

	h.kieSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/file-base64-upload":
			h.mu.Lock()
			h.uploads++
			failUpload := h.failUpload
			h.mu.Unlock()
			if failUpload {
				_ = json.NewEncoder(w).Encode(uploadResp{Success: false, Msg: "storage unavailable"})
				return
			}
			resp := uploadResp{Success: true}
			resp.Data.DownloadURL = "https://files.example.com/in.jpg"
			_ = json.NewEncoder(w).Encode(resp)
		case "/api/v1/jobs/createTask":
			var payload createTaskRequest
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode createTask request: %v", err)
				return
			}
			h.mu.Lock()
			h.submitted = append(h.submitted, payload.Model)
			h.mu.Unlock()

			note := h.notificationFor(payload.Model)
			if note == "reject-submission" {
				_ = json.NewEncoder(w).Encode(createTaskResp{Code: 500, Msg: "model offline"})
				return
			}
			if note != "" {
				channelID := payload.CallBackURL[strings.LastIndex(payload.CallBackURL, "/")+1:]
				h.mu.Lock()
				h.notifications[channelID] = append(h.notifications[channelID], note)
				h.mu.Unlock()
			}
			resp := createTaskResp{Code: 200}
			resp.Data.TaskID = "task-" + payload.Model
			_ = json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected kie request: %s %s", r.Method, r.URL.Path)
		}
	}))

	t.Cleanup(h.kieSrv.Close)
	t.Cleanup(h.relaySrv.Close)
	return h
}

func (h *fakeProviderHarness) service(pollTimeout time.Duration) *Service {
	kie := NewKieClient(KieOptions{
		APIKey:    "test-key",
		BaseURL:   h.kieSrv.URL,
		UploadURL: h.kieSrv.URL + "/api/file-base64-upload",
	})
	relay := NewRelayClient(RelayOptions{BaseURL: h.relaySrv.URL})
	return NewService(kie, relay, 10*time.Millisecond, pollTimeout, zerolog.Nop())
}

func (h *fakeProviderHarness) submissionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.submitted)
}

func (h *fakeProviderHarness) uploadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.uploads
}

func TestGenerateVariantsEndToEnd(t *testing.T) {
	h := newFakeProviderHarness(t)
	h.notificationFor = func(model string) string {
		if model == "ideogram/v2" {
			return `{"data":{"state":"fail"}}`
		}
		return fmt.Sprintf(`{"data":{"state":"success","resultUrls":["https://x/%s"]}}`, model)
	}
	svc := h.service(2 * time.Second)

	var mu sync.Mutex
	delivered := map[int]Outcome{}
	outcomes := svc.GenerateVariants(context.Background(), makeTestPNG(t, 2000, 3000, true), "modern style", 4, func(index int, outcome Outcome) {
		mu.Lock()
		delivered[index] = outcome
		mu.Unlock()
	})

	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}
	for i, out := range outcomes {
		if out.Backend != Backends[i] {
			t.Fatalf("outcome %d backend mismatch: %s", i, out.Backend)
		}
	}
	for _, i := range []int{0, 1, 3} {
		want := "https://x/" + Backends[i]
		if outcomes[i].URL != want {
			t.Fatalf("outcome %d url mismatch: got %q want %q", i, outcomes[i].URL, want)
		}
	}
	if outcomes[2].OK() {
		t.Fatalf("expected failed backend at index 2, got %+v", outcomes[2])
	}
	if !errors.Is(outcomes[2].Err, ErrRemoteFailed) {
		t.Fatalf("expected ErrRemoteFailed at index 2, got %v", outcomes[2].Err)
	}

	if h.uploadCount() != 1 {
		t.Fatalf("upload invoked %d times, want exactly 1", h.uploadCount())
	}
	if h.submissionCount() != 4 {
		t.Fatalf("expected 4 submissions, got %d", h.submissionCount())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 4 {
		t.Fatalf("expected 4 streamed results, got %d", len(delivered))
	}
	for i, out := range outcomes {
		if delivered[i].URL != out.URL {
			t.Fatalf("streamed result %d mismatch: %+v vs %+v", i, delivered[i], out)
		}
	}
}

func TestGenerateVariantsUploadShortCircuit(t *testing.T) {
	h := newFakeProviderHarness(t)
	h.failUpload = true
	svc := h.service(time.Second)

	outcomes := svc.GenerateVariants(context.Background(), makeTestPNG(t, 100, 100, false), "p", 4, nil)

	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}
	for i, out := range outcomes {
		if out.OK() {
			t.Fatalf("outcome %d unexpectedly succeeded", i)
		}
		if !errors.Is(out.Err, ErrUploadFailed) {
			t.Fatalf("outcome %d: expected ErrUploadFailed, got %v", i, out.Err)
		}
	}
	if h.submissionCount() != 0 {
		t.Fatalf("expected zero submissions after upload failure, got %d", h.submissionCount())
	}
}

func TestGenerateVariantsDecodeShortCircuit(t *testing.T) {
	h := newFakeProviderHarness(t)
	svc := h.service(time.Second)

	outcomes := svc.GenerateVariants(context.Background(), []byte("not an image"), "p", 4, nil)

	for i, out := range outcomes {
		if !errors.Is(out.Err, ErrDecodeImage) {
			t.Fatalf("outcome %d: expected ErrDecodeImage, got %v", i, out.Err)
		}
	}
	if h.uploadCount() != 0 {
		t.Fatalf("expected zero uploads after decode failure, got %d", h.uploadCount())
	}
}

func TestGenerateVariantsPartialSubmissionFailure(t *testing.T) {
	h := newFakeProviderHarness(t)
	h.notificationFor = func(model string) string {
		if model == "flux/1.1-pro-ultra" {
			return "reject-submission"
		}
		return fmt.Sprintf(`{"data":{"state":"success","resultUrls":["https://x/%s"]}}`, model)
	}
	svc := h.service(2 * time.Second)

	outcomes := svc.GenerateVariants(context.Background(), makeTestPNG(t, 100, 100, false), "p", 4, nil)

	populated := 0
	for i, out := range outcomes {
		if Backends[i] == "flux/1.1-pro-ultra" {
			if out.OK() {
				t.Fatalf("rejected backend unexpectedly succeeded")
			}
			if !errors.Is(out.Err, ErrSubmitFailed) {
				t.Fatalf("expected ErrSubmitFailed, got %v", out.Err)
			}
			continue
		}
		if !out.OK() {
			t.Fatalf("sibling backend %s failed: %v", out.Backend, out.Err)
		}
		populated++
	}
	if populated != 3 {
		t.Fatalf("expected 3 populated urls, got %d", populated)
	}
}

func TestGenerateVariantsTimeoutDoesNotBlockSiblings(t *testing.T) {
	h := newFakeProviderHarness(t)
	h.notificationFor = func(model string) string {
		if model == "recraft/v3" {
			return "" // never completes
		}
		return fmt.Sprintf(`{"data":{"state":"success","resultUrls":["https://x/%s"]}}`, model)
	}
	svc := h.service(300 * time.Millisecond)

	var mu sync.Mutex
	resolvedAt := map[string]time.Time{}
	start := time.Now()
	outcomes := svc.GenerateVariants(context.Background(), makeTestPNG(t, 100, 100, false), "p", 4, func(index int, outcome Outcome) {
		mu.Lock()
		resolvedAt[outcome.Backend] = time.Now()
		mu.Unlock()
	})

	timedOutIdx := len(Backends) - 1
	if !errors.Is(outcomes[timedOutIdx].Err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout for silent backend, got %v", outcomes[timedOutIdx].Err)
	}

	mu.Lock()
	defer mu.Unlock()
	slowest := resolvedAt["recraft/v3"]
	for _, backend := range Backends[:3] {
		if !outcomes[indexOfBackend(t, backend)].OK() {
			t.Fatalf("sibling %s did not succeed", backend)
		}
		if at := resolvedAt[backend]; !at.Before(slowest) {
			t.Fatalf("sibling %s resolved after the timed-out backend", backend)
		}
		if at := resolvedAt[backend]; at.Sub(start) > 200*time.Millisecond {
			t.Fatalf("sibling %s waited on the timeout budget: %v", backend, at.Sub(start))
		}
	}
}

func indexOfBackend(t *testing.T, backend string) int {
	t.Helper()
	for i, b := range Backends {
		if b == backend {
			return i
		}
	}
	t.Fatalf("unknown backend %s", backend)
	return -1
}

func TestGenerateVariantsCapsAtConfiguredBackends(t *testing.T) {
	h := newFakeProviderHarness(t)
	svc := h.service(2 * time.Second)

	outcomes := svc.GenerateVariants(context.Background(), makeTestPNG(t, 100, 100, false), "p", 10, nil)
	if len(outcomes) != len(Backends) {
		t.Fatalf("expected count capped at %d, got %d", len(Backends), len(outcomes))
	}
}
