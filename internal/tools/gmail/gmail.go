// Package gmail provides the GmailTool, which sends email through the Gmail
// API using OAuth2 client credentials.
//
// Authentication expects a client-credentials JSON file (downloaded from the
// Google Cloud console) and a locally cached token JSON file obtained from a
// prior interactive consent flow. The tool never starts an interactive flow
// itself: a missing or expired token is reported as an "Error: ..." result
// string telling the operator to re-authorise.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/loquax-ai/loquax/internal/tools"
)

// Name is the registry key for this tool.
const Name = "GmailTool"

// Default credential file locations, relative to the working directory.
const (
	defaultCredentialsFile = "credentials.json"
	defaultTokenFile       = "token.json"
)

// Config holds file locations for the OAuth2 material.
type Config struct {
	// CredentialsFile is the OAuth2 client-credentials JSON file.
	// Defaults to "credentials.json".
	CredentialsFile string

	// TokenFile is the cached OAuth2 token JSON file.
	// Defaults to "token.json".
	TokenFile string
}

// Tool implements tools.Tool for sending mail via the Gmail API.
type Tool struct {
	cfg Config

	mu  sync.Mutex
	svc *gmailapi.Service

	// newService is swapped by tests to avoid real API construction.
	newService func(ctx context.Context, ts oauth2.TokenSource) (*gmailapi.Service, error)
}

// New returns a GmailTool with the given configuration.
func New(cfg Config) *Tool {
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = defaultCredentialsFile
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile
	}
	return &Tool{
		cfg: cfg,
		newService: func(ctx context.Context, ts oauth2.TokenSource) (*gmailapi.Service, error) {
			return gmailapi.NewService(ctx, option.WithTokenSource(ts))
		},
	}
}

// Spec implements tools.Tool.
func (t *Tool) Spec() tools.Spec {
	return tools.Spec{
		Name:        Name,
		Description: "Send emails using Gmail API",
		Parameters: map[string]tools.Param{
			"to": {
				Type:        tools.TypeString,
				Description: "Recipient email address",
				Required:    true,
			},
			"subject": {
				Type:        tools.TypeString,
				Description: "Email subject line",
				Required:    true,
			},
			"body": {
				Type:        tools.TypeString,
				Description: "Email body content (supports HTML)",
				Required:    true,
			},
			"is_html": {
				Type:        tools.TypeBoolean,
				Description: "Whether the body contains HTML (default: false)",
				Required:    false,
			},
			"cc": {
				Type:        tools.TypeString,
				Description: "CC recipient email addresses (comma-separated)",
				Required:    false,
			},
			"bcc": {
				Type:        tools.TypeString,
				Description: "BCC recipient email addresses (comma-separated)",
				Required:    false,
			},
		},
	}
}

// Execute implements tools.Tool.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	to := tools.StringArg(args, "to", "")
	subject := tools.StringArg(args, "subject", "")
	body := tools.StringArg(args, "body", "")
	if to == "" || subject == "" || body == "" {
		return "Error: 'to', 'subject', and 'body' parameters are all required", nil
	}

	svc, errMsg := t.service(ctx)
	if errMsg != "" {
		return errMsg, nil
	}

	raw := buildMessage(to, subject, body,
		tools.BoolArg(args, "is_html", false),
		tools.StringArg(args, "cc", ""),
		tools.StringArg(args, "bcc", ""),
	)

	_, err := svc.Users.Messages.Send("me", &gmailapi.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return fmt.Sprintf("Error sending email: %v", err), nil
	}

	return fmt.Sprintf("Email sent successfully to %s", to), nil
}

// service lazily builds the Gmail API client from the credential files.
// Failures are returned as user-facing "Error: ..." strings.
func (t *Tool) service(ctx context.Context) (*gmailapi.Service, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.svc != nil {
		return t.svc, ""
	}

	credBytes, err := os.ReadFile(t.cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Sprintf("Error: credentials file %q not found; download OAuth2 credentials from the Google Cloud console", t.cfg.CredentialsFile)
	}

	oauthCfg, err := google.ConfigFromJSON(credBytes, gmailapi.GmailSendScope)
	if err != nil {
		return nil, fmt.Sprintf("Error: invalid credentials file: %v", err)
	}

	tokBytes, err := os.ReadFile(t.cfg.TokenFile)
	if err != nil {
		return nil, fmt.Sprintf("Error: token file %q not found; run the authorisation flow to create it", t.cfg.TokenFile)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(tokBytes, tok); err != nil {
		return nil, fmt.Sprintf("Error: invalid token file: %v", err)
	}

	// TokenSource refreshes expired tokens transparently using the refresh
	// token; only a revoked grant surfaces as a send failure later.
	svc, err := t.newService(ctx, oauthCfg.TokenSource(ctx, tok))
	if err != nil {
		return nil, fmt.Sprintf("Error: could not initialise Gmail client: %v", err)
	}

	t.svc = svc
	return svc, ""
}

// buildMessage assembles an RFC 2822 message and returns it encoded as the
// base64url string the Gmail API expects.
func buildMessage(to, subject, body string, isHTML bool, cc, bcc string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if cc != "" {
		fmt.Fprintf(&b, "Cc: %s\r\n", cc)
	}
	if bcc != "" {
		fmt.Fprintf(&b, "Bcc: %s\r\n", bcc)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	if isHTML {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
