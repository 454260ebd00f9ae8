// Package news provides the NewsTool, which fetches top headlines from the
// newsapi.org REST API.
//
// The tool requires an API key, supplied via [Config.APIKey] or the
// NEWS_API_KEY environment variable. All upstream failures are reported as
// "Error: ..." result strings per the tool contract.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/loquax-ai/loquax/internal/tools"
)

// Name is the registry key for this tool.
const Name = "NewsTool"

// defaultBaseURL is the newsapi.org top-headlines endpoint.
const defaultBaseURL = "https://newsapi.org/v2/top-headlines"

// maxLimit caps the number of returned headlines.
const maxLimit = 10

// Config holds optional settings for the NewsTool.
type Config struct {
	// APIKey authenticates against newsapi.org. Falls back to the
	// NEWS_API_KEY environment variable when empty.
	APIKey string

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string

	// HTTPClient overrides the default client (10s timeout).
	HTTPClient *http.Client
}

// Tool implements tools.Tool for headline lookups.
type Tool struct {
	cfg Config
}

// New returns a NewsTool with the given configuration.
func New(cfg Config) *Tool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Tool{cfg: cfg}
}

// Spec implements tools.Tool.
func (t *Tool) Spec() tools.Spec {
	return tools.Spec{
		Name:        Name,
		Description: "Get today's top news headlines by category or keyword",
		Parameters: map[string]tools.Param{
			"query": {
				Type:        tools.TypeString,
				Description: "Optional: Search term or keywords to find specific news",
				Required:    false,
			},
			"category": {
				Type:        tools.TypeString,
				Description: "Optional: News category (business, entertainment, general, health, science, sports, technology)",
				Required:    false,
			},
			"limit": {
				Type:        tools.TypeInteger,
				Description: "Optional: Number of news items to return (default: 5, max: 10)",
				Required:    false,
			},
		},
	}
}

// apiResponse mirrors the newsapi.org top-headlines response body.
type apiResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Execute implements tools.Tool.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	apiKey := t.cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("NEWS_API_KEY")
	}
	if apiKey == "" {
		return "Error: NEWS_API_KEY not found in environment variables", nil
	}

	query := tools.StringArg(args, "query", "")
	category := tools.StringArg(args, "category", "")
	limit := tools.IntArg(args, "limit", 5)
	if limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = 1
	}

	params := url.Values{}
	params.Set("apiKey", apiKey)
	params.Set("pageSize", fmt.Sprint(limit))
	params.Set("language", "en")
	if query != "" {
		params.Set("q", query)
	}
	if category != "" {
		params.Set("category", category)
	} else {
		// Without a category, scope to a default region so the API does not
		// reject the request as unconstrained.
		params.Set("country", "us")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Sprintf("Error fetching news: %v", err), nil
	}

	resp, err := t.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return fmt.Sprintf("Error fetching news: %v", err), nil
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Sprintf("Error fetching news: %v", err), nil
	}

	if resp.StatusCode != http.StatusOK {
		msg := body.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return "Error fetching news: " + msg, nil
	}
	if body.Status != "ok" {
		msg := body.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return "API Error: " + msg, nil
	}
	if len(body.Articles) == 0 {
		return "No news articles found for the given criteria", nil
	}

	articles := body.Articles
	if len(articles) > limit {
		articles = articles[:limit]
	}

	var b strings.Builder
	b.WriteString("Today's Headlines:\n\n")
	for i, a := range articles {
		title := a.Title
		if title == "" {
			title = "No title"
		}
		source := a.Source.Name
		if source == "" {
			source = "Unknown Source"
		}
		link := a.URL
		if link == "" {
			link = "#"
		}
		published := a.PublishedAt
		if published == "" {
			published = "Unknown date"
		}
		fmt.Fprintf(&b, "%d. %s\n   Source: %s | Published: %s\n   URL: %s\n\n", i+1, title, source, published, link)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
