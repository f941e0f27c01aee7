package webui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arendahub/miniapp-client/internal/backend"
	"github.com/arendahub/miniapp-client/internal/config"
	"github.com/arendahub/miniapp-client/internal/flow"
	"github.com/arendahub/miniapp-client/internal/host"
)

const testPollInterval = 20 * time.Millisecond

// appBackend fakes the remote application backend for shell tests.
type appBackend struct {
	mu sync.Mutex

	profile     *backend.Profile
	profileCode int

	submitCode int
	submitBody string

	statusScript []string
	lastStatus   string

	confirmCode int
	pdfCode     int

	states      []string
	submitCalls int
	pdfRequests []*http.Request
}

func newAppBackend() *appBackend {
	return &appBackend{
		profileCode: http.StatusOK,
		submitCode:  http.StatusOK,
		confirmCode: http.StatusOK,
		pdfCode:     http.StatusOK,
		lastStatus:  backend.StatusInProgress,
	}
}

func (b *appBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		switch r.URL.Path {
		case "/api/user":
			if b.profile == nil || b.profileCode != http.StatusOK {
				w.WriteHeader(b.profileCode)
				return
			}
			json.NewEncoder(w).Encode(b.profile)
		case "/api/user/state":
			var body struct {
				State string `json:"state"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			b.states = append(b.states, body.State)
			w.WriteHeader(http.StatusOK)
		case "/api/application":
			b.submitCalls++
			w.WriteHeader(b.submitCode)
			w.Write([]byte(b.submitBody))
		case "/api/user/status":
			status := b.lastStatus
			if len(b.statusScript) > 0 {
				status = b.statusScript[0]
				b.statusScript = b.statusScript[1:]
				b.lastStatus = status
			}
			json.NewEncoder(w).Encode(backend.Status{CheckStatus: status})
		case "/api/contract/confirm":
			w.WriteHeader(b.confirmCode)
		case "/api/contract/pdf":
			b.pdfRequests = append(b.pdfRequests, r.Clone(context.Background()))
			if b.pdfCode != http.StatusOK {
				w.WriteHeader(b.pdfCode)
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 contract"))
		case "/api/log":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (b *appBackend) stateWrites() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.states...)
}

// newShell wires a full shell over the fake backend and returns its test
// server plus a client that does not follow redirects.
func newShell(t *testing.T, fake *appBackend) (*httptest.Server, *http.Client) {
	t.Helper()

	backendSrv := httptest.NewServer(fake.handler())
	t.Cleanup(backendSrv.Close)

	log := zerolog.Nop()
	client := backend.New(backend.Config{BaseURL: backendSrv.URL, ChatID: 7, Logger: log})
	recorder := backend.NewRecorder(backend.RecorderConfig{
		Client: client,
		Logger: log,
	})
	t.Cleanup(recorder.Close)

	session := flow.NewSession(flow.SessionConfig{
		Backend:      client,
		Recorder:     recorder,
		Resolver:     flow.NewResolver(client, log),
		Logger:       log,
		PollInterval: testPollInterval,
	})
	t.Cleanup(session.Close)

	hostCtx := host.Resolve(host.Env{
		InitData: "user=" + url.QueryEscape(`{"id":7,"first_name":"Иван","username":"ivan_p","phone_number":"+79991234567"}`),
	})

	server, err := New(ServerConfig{
		Host:     hostCtx,
		Backend:  client,
		Recorder: recorder,
		Session:  session,
		Pages:    config.DefaultPages(),
		Logger:   log,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	shell := httptest.NewServer(server.Router())
	t.Cleanup(shell.Close)

	httpClient := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return shell, httpClient
}

func get(t *testing.T, c *http.Client, rawURL string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func postForm(t *testing.T, c *http.Client, rawURL string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(rawURL, form)
	if err != nil {
		t.Fatalf("POST %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestBootRedirectsToServerState(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "contract"}
	shell, client := newShell(t, fake)

	resp, _ := get(t, client, shell.URL+"/")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302 boot redirect", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/contract" {
		t.Errorf("Location = %q, want /contract", loc)
	}
}

func TestBootStaysOnMatchingRoute(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "", Username: "ivan_p", Phone: "+79991234567"}
	shell, client := newShell(t, fake)

	resp, body := get(t, client, shell.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "Добро пожаловать") {
		t.Error("home page copy missing")
	}
	if !strings.Contains(body, "@ivan_p") {
		t.Error("username not displayed with @ prefix")
	}

	// First contact with an empty state establishes the record.
	writes := fake.stateWrites()
	found := false
	for _, w := range writes {
		if w == "home" {
			found = true
		}
	}
	if !found {
		t.Errorf("state writes = %v, want a home write-back", writes)
	}
}

func TestBootFailsOpenToHome(t *testing.T) {
	fake := newAppBackend()
	fake.profileCode = http.StatusInternalServerError
	shell, client := newShell(t, fake)

	resp, body := get(t, client, shell.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 entry page", resp.StatusCode)
	}
	if !strings.Contains(body, "Добро пожаловать") {
		t.Error("entry page copy missing on backend failure")
	}
}

func TestApplicationSubmitSuccess(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "application"}
	shell, client := newShell(t, fake)

	get(t, client, shell.URL+"/application") // boot + page entry

	form := url.Values{
		"passport_number": {"1234 567890"},
		"snils":           {"123-456-789 01"},
	}
	resp, _ := postForm(t, client, shell.URL+"/application", form)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/waiting" {
		t.Errorf("Location = %q, want /waiting", loc)
	}

	writes := fake.stateWrites()
	if len(writes) == 0 || writes[len(writes)-1] != "waiting" {
		t.Errorf("state writes = %v, want waiting last", writes)
	}
}

func TestApplicationSubmitRejectionSurfacesMessage(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "application"}
	fake.submitCode = http.StatusBadRequest
	fake.submitBody = `{"error":"duplicate"}`
	shell, client := newShell(t, fake)

	get(t, client, shell.URL+"/application")

	form := url.Values{
		"passport_number": {"1234 567890"},
		"snils":           {"123-456-789 01"},
	}
	resp, body := postForm(t, client, shell.URL+"/application", form)
	if resp.StatusCode == http.StatusSeeOther {
		t.Fatal("submit redirected despite server rejection")
	}
	if !strings.Contains(body, "duplicate") {
		t.Error("server-supplied error message not surfaced")
	}

	for _, w := range fake.stateWrites() {
		if w == "waiting" {
			t.Error("state moved to waiting despite rejection")
		}
	}
}

func TestApplicationSubmitValidatesInput(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "application"}
	shell, client := newShell(t, fake)

	get(t, client, shell.URL+"/application")

	form := url.Values{
		"passport_number": {"12a34"},
		"snils":           {"123-456-789 01"},
	}
	resp, body := postForm(t, client, shell.URL+"/application", form)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if !strings.Contains(body, config.DefaultPages().Application.InvalidField) {
		t.Error("validation message missing")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.submitCalls != 0 {
		t.Errorf("submit calls = %d, want 0 for invalid input", fake.submitCalls)
	}
}

func TestWaitingDecisionRedirects(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "waiting"}
	fake.statusScript = []string{backend.StatusInProgress, backend.StatusApproved}
	shell, client := newShell(t, fake)

	resp, body := get(t, client, shell.URL+"/waiting")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "Идет проверка анкеты") {
		t.Error("waiting page copy missing")
	}

	// Give the poller time to see the approval, then refresh.
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, _ = get(t, client, shell.URL+"/waiting")
		if resp.StatusCode == http.StatusFound {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("waiting page never redirected after approval")
		}
		time.Sleep(testPollInterval)
	}
	if loc := resp.Header.Get("Location"); loc != "/contract" {
		t.Errorf("Location = %q, want /contract", loc)
	}
}

func TestContractPDFProxy(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "contract"}
	shell, client := newShell(t, fake)

	resp, body := get(t, client, shell.URL+"/contract/pdf")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", got)
	}
	if !strings.HasPrefix(body, "%PDF") {
		t.Error("pdf body not proxied")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	req := fake.pdfRequests[0]
	if req.Header.Get(backend.ChatIDHeader) != "7" {
		t.Error("identity header missing on the upstream pdf fetch")
	}
	if req.URL.RawQuery != "" {
		t.Errorf("upstream query = %q, want no credentials in the URL", req.URL.RawQuery)
	}
}

func TestContractPDFUnavailable(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "contract"}
	fake.pdfCode = http.StatusInternalServerError
	shell, client := newShell(t, fake)

	resp, _ := get(t, client, shell.URL+"/contract/pdf")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestContractConfirm(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "contract"}
	shell, client := newShell(t, fake)

	get(t, client, shell.URL+"/contract")

	resp, _ := postForm(t, client, shell.URL+"/contract/confirm", url.Values{})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/contract" {
		t.Errorf("Location = %q, want /contract", loc)
	}
}

func TestContractConfirmFailure(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "contract"}
	fake.confirmCode = http.StatusInternalServerError
	shell, client := newShell(t, fake)

	get(t, client, shell.URL+"/contract")

	resp, body := postForm(t, client, shell.URL+"/contract/confirm", url.Values{})
	if resp.StatusCode == http.StatusSeeOther {
		t.Fatal("confirm redirected despite failure")
	}
	if !strings.Contains(body, config.DefaultPages().Contract.ConfirmError) {
		t.Error("confirm error copy missing")
	}
}

func TestUnknownPathFallsBackToHome(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "home"}
	shell, client := newShell(t, fake)

	resp, _ := get(t, client, shell.URL+"/nope")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestRejectedPage(t *testing.T) {
	fake := newAppBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "rejected"}
	shell, client := newShell(t, fake)

	resp, body := get(t, client, shell.URL+"/rejected")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "Анкета отклонена") {
		t.Error("rejected page copy missing")
	}
}

func TestHealthz(t *testing.T) {
	fake := newAppBackend()
	shell, client := newShell(t, fake)

	resp, body := get(t, client, shell.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "ok") {
		t.Errorf("body = %q, want ok", body)
	}
}
