package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/teslashibe/go-callflow/pkg/callflow"
	"github.com/teslashibe/go-callflow/pkg/session"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:5000/api/google/callback",
		TokenPath:    filepath.Join(t.TempDir(), "token.json"),
	}
}

func interview() *session.Session {
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	s := session.New("CA42", now)
	s.Caller = "+15551230000"
	s.SetIdentity("bob", "bobby", now)
	s.Append(session.SpeakerIntroduction, "Bob Smith but call me Bobby", now)
	s.Append(session.SpeakerSubject, "I repair boats", now)
	s.MarkComplete(now)
	return s
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("New() error = %v, want ErrNoCredentials", err)
	}
}

func TestNotConnectedWithoutToken(t *testing.T) {
	d, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Connected() {
		t.Error("should not be connected without a token")
	}
	if _, err := d.Export(context.Background(), interview()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Export() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestAuthURL(t *testing.T) {
	d, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	url := d.AuthURL("state-1")
	for _, want := range []string{"client_id=client-id", "state=state-1", "access_type=offline", "documents"} {
		if !strings.Contains(url, want) {
			t.Errorf("AuthURL missing %q: %s", want, url)
		}
	}
}

func TestSavedTokenLoaded(t *testing.T) {
	cfg := testConfig(t)
	tok := &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(time.Hour)}
	data, _ := json.Marshal(tok)
	if err := os.WriteFile(cfg.TokenPath, data, 0600); err != nil {
		t.Fatal(err)
	}

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !d.Connected() {
		t.Error("saved token should connect the exporter")
	}
}

func TestFormat(t *testing.T) {
	text := Format(interview())

	for _, want := range []string{
		"Interview with Bobby (2026-05-06)",
		"Call: CA42",
		"Caller: +15551230000",
		"First name: bob",
		"Preferred name: bobby",
		"1. Introduction: Bob Smith but call me Bobby",
		"2. Answer: I repair boats",
		"Status: complete",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Format() missing %q\n%s", want, text)
		}
	}
}

func TestTitleUnknownCaller(t *testing.T) {
	s := session.New("CA1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if got := Title(s); got != "Interview with Unknown caller (2026-01-01)" {
		t.Errorf("Title() = %q", got)
	}
}

func TestDocURL(t *testing.T) {
	if got := DocURL("doc1"); got != "https://docs.google.com/document/d/doc1/edit" {
		t.Errorf("DocURL() = %q", got)
	}
}

// fakeDocs serves the two Docs API calls an export makes.
type fakeDocs struct {
	mu       sync.Mutex
	title    string
	inserted string
}

func (f *fakeDocs) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/documents", func(w http.ResponseWriter, r *http.Request) {
		var doc struct {
			Title string `json:"title"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &doc)
		f.mu.Lock()
		f.title = doc.Title
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documentId":"doc-1","title":"` + doc.Title + `"}`))
	})
	mux.HandleFunc("/v1/documents/doc-1:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Requests []struct {
				InsertText struct {
					Text string `json:"text"`
				} `json:"insertText"`
			} `json:"requests"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil || len(req.Requests) != 1 {
			t.Errorf("unexpected batchUpdate body: %s", body)
		}
		f.mu.Lock()
		if len(req.Requests) > 0 {
			f.inserted = req.Requests[0].InsertText.Text
		}
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documentId":"doc-1"}`))
	})
	return mux
}

func connectedExporter(t *testing.T, fake *fakeDocs) *Docs {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	cfg := testConfig(t)
	cfg.Endpoint = server.URL + "/"
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tok := &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(time.Hour)}
	if err := d.SetToken(context.Background(), tok); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	return d
}

func TestExport(t *testing.T) {
	fake := &fakeDocs{}
	d := connectedExporter(t, fake)

	s := interview()
	id, err := d.Export(context.Background(), s)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if id != "doc-1" {
		t.Errorf("doc id = %q", id)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.title != Title(s) {
		t.Errorf("title = %q, want %q", fake.title, Title(s))
	}
	if fake.inserted != Format(s) {
		t.Errorf("inserted text mismatch:\n%s", fake.inserted)
	}
}

type recordingExporter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingExporter) Export(ctx context.Context, s *session.Session) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s.CallID)
	return "doc", r.err
}

func TestObserverExportsOnCompletion(t *testing.T) {
	store := session.NewMemoryStore()
	if err := store.Save(context.Background(), interview()); err != nil {
		t.Fatal(err)
	}

	exp := &recordingExporter{}
	done := make(chan error, 1)
	o := NewObserver(exp, store, nil)
	o.done = done

	o.OnEvent(callflow.Event{Type: callflow.EventAnswered, CallID: "CA42"})
	o.OnEvent(callflow.Event{Type: callflow.EventCompleted, CallID: "CA42"})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("export error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("export did not run")
	}

	exp.mu.Lock()
	defer exp.mu.Unlock()
	if len(exp.calls) != 1 || exp.calls[0] != "CA42" {
		t.Errorf("exports = %v, want [CA42]", exp.calls)
	}
}

func TestObserverFailureIsLogged(t *testing.T) {
	store := session.NewMemoryStore()
	if err := store.Save(context.Background(), interview()); err != nil {
		t.Fatal(err)
	}

	exp := &recordingExporter{err: errors.New("quota exceeded")}
	done := make(chan error, 1)
	o := NewObserver(exp, store, nil)
	o.done = done

	o.OnEvent(callflow.Event{Type: callflow.EventCompleted, CallID: "CA42"})

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected export error to surface on done")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("export did not run")
	}
}
