// Package export writes finished interviews to Google Docs.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"

	"github.com/teslashibe/go-callflow/pkg/session"
)

// Sentinel errors for the export package.
var (
	ErrNoCredentials    = errors.New("export: google client id and secret required")
	ErrNotAuthenticated = errors.New("export: not connected to google")
)

// Config configures the Docs exporter.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "http://localhost:5000/api/google/callback"
	TokenPath    string

	// Endpoint overrides the Docs API base URL.
	Endpoint string

	Logger *slog.Logger
}

// Docs exports transcripts to Google Docs over OAuth2.
type Docs struct {
	oauth     *oauth2.Config
	tokenPath string
	endpoint  string
	logger    *slog.Logger

	mu      sync.RWMutex
	service *docs.Service
}

// New creates an exporter, loading a saved token if one exists.
func New(cfg Config) (*Docs, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNoCredentials
	}
	if cfg.TokenPath == "" {
		home, _ := os.UserHomeDir()
		cfg.TokenPath = filepath.Join(home, ".callflow", "google_token.json")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Docs{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/documents",
				"https://www.googleapis.com/auth/drive.file",
			},
			Endpoint: google.Endpoint,
		},
		tokenPath: cfg.TokenPath,
		endpoint:  cfg.Endpoint,
		logger:    cfg.Logger.With("component", "export"),
	}

	if tok, err := d.loadToken(); err == nil {
		if err := d.setToken(context.Background(), tok); err != nil {
			d.logger.Warn("saved google token unusable", "error", err)
		}
	}
	return d, nil
}

// Connected reports whether a token is available.
func (d *Docs) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.service != nil
}

// AuthURL returns the consent URL.
func (d *Docs) AuthURL(state string) string {
	return d.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and persists it.
func (d *Docs) Exchange(ctx context.Context, code string) error {
	tok, err := d.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}
	if err := d.saveToken(tok); err != nil {
		d.logger.Warn("failed to save token", "error", err)
	}
	return d.setToken(ctx, tok)
}

// SetToken installs a token directly.
func (d *Docs) SetToken(ctx context.Context, tok *oauth2.Token) error {
	return d.setToken(ctx, tok)
}

func (d *Docs) setToken(ctx context.Context, tok *oauth2.Token) error {
	opts := []option.ClientOption{
		option.WithHTTPClient(d.oauth.Client(context.Background(), tok)),
	}
	if d.endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.endpoint))
	}
	svc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create docs service: %w", err)
	}

	d.mu.Lock()
	d.service = svc
	d.mu.Unlock()
	return nil
}

// Export creates a document holding the session's interview and returns
// its id.
func (d *Docs) Export(ctx context.Context, s *session.Session) (string, error) {
	d.mu.RLock()
	svc := d.service
	d.mu.RUnlock()
	if svc == nil {
		return "", ErrNotAuthenticated
	}

	created, err := svc.Documents.Create(&docs.Document{Title: Title(s)}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	_, err = svc.Documents.BatchUpdate(created.DocumentId, &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{{
			InsertText: &docs.InsertTextRequest{
				Location: &docs.Location{Index: 1},
				Text:     Format(s),
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return created.DocumentId, fmt.Errorf("created doc but failed to add content: %w", err)
	}

	d.logger.Info("interview exported", "call_id", s.CallID, "doc_id", created.DocumentId)
	return created.DocumentId, nil
}

// DocURL returns the URL to view a document.
func DocURL(docID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID)
}

// Title names the document for a session.
func Title(s *session.Session) string {
	name := s.AddressName()
	if name == "" {
		name = "Unknown caller"
	} else {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("Interview with %s (%s)", name, s.CreatedAt.Format("2006-01-02"))
}

// Format renders the interview as plain text.
func Format(s *session.Session) string {
	var sb strings.Builder
	sb.WriteString(Title(s))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Call: %s\n", s.CallID)
	if s.Caller != "" {
		fmt.Fprintf(&sb, "Caller: %s\n", s.Caller)
	}
	if s.FirstName != "" {
		fmt.Fprintf(&sb, "First name: %s\n", s.FirstName)
	}
	if s.PreferredName != "" {
		fmt.Fprintf(&sb, "Preferred name: %s\n", s.PreferredName)
	}
	sb.WriteString("\nAnswers\n")
	for i, turn := range s.History {
		label := "Answer"
		if turn.Speaker == session.SpeakerIntroduction {
			label = "Introduction"
		}
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, label, turn.Text)
	}

	status := "in progress"
	if s.Complete {
		status = "complete"
	}
	fmt.Fprintf(&sb, "\n---\nStatus: %s\nLast updated: %s\n", status, s.LastUpdated.Format(time.RFC1123))
	return sb.String()
}

func (d *Docs) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(d.tokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (d *Docs) saveToken(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(d.tokenPath), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.tokenPath, data, 0600)
}
