package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finnews-notifier/internal/ingestor/config"
	"finnews-notifier/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const initDataSelector = `script[type="application/prs.init-data+json"]`

var (
	// ErrSourceUnavailable covers network errors and non-2xx responses.
	ErrSourceUnavailable = errors.New("news source unavailable")
	// ErrMalformedPayload covers responses whose markup or embedded JSON
	// does not match the expected shape.
	ErrMalformedPayload = errors.New("malformed source payload")
	// ErrUnsupportedLanguage is returned for languages with no configured origin.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// ListingItem is one entry of the remote news listing.
type ListingItem struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	StoryPath      string          `json:"storyPath"`
	Source         string          `json:"source"`
	Provider       string          `json:"provider"`
	Urgency        int             `json:"urgency"`
	Published      int64           `json:"published"`
	RelatedSymbols []RelatedSymbol `json:"relatedSymbols"`
}

// RelatedSymbol is a ticker reference attached to a listing item.
type RelatedSymbol struct {
	Symbol string `json:"symbol"`
}

// Article is the full body of one story.
type Article struct {
	ASTDescription   *ASTNode
	RawASTJSON       string
	ShortDescription string
	Copyright        string
}

// SymbolMetadata is the descriptive data returned by the scanner endpoint.
type SymbolMetadata struct {
	Symbol      string
	Description string
	Sector      string
	LogoID      string
	Currency    string
	Close       float64
	PerfWeek    float64
	PerfMonth   float64
	PerfYear    float64
}

// Client fetches news listings, article bodies and symbol metadata from the
// remote market-data site.
type Client interface {
	FetchListing(ctx context.Context, language string) ([]ListingItem, error)
	FetchArticle(ctx context.Context, language, storyPath string) (*Article, error)
	FetchSymbolMetadata(ctx context.Context, symbol string) (*SymbolMetadata, error)
}

type client struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewClient creates a rate-limited HTTP client for the remote source.
func NewClient(cfg *config.Config, log *logger.Logger) Client {
	secondsPerRequest := time.Minute / time.Duration(cfg.Source.MaxRequestPerMinute)
	return &client{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: cfg.Source.RequestTimeout,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

// FetchListing retrieves and decodes the news listing for one language.
func (c *client) FetchListing(ctx context.Context, language string) ([]ListingItem, error) {
	origin, ok := c.cfg.Source.Origins[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	body, err := c.get(ctx, origin+c.cfg.Source.ListingPath)
	if err != nil {
		return nil, err
	}

	raw, err := extractInitData(body, "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Blocks []struct {
			News struct {
				Items []ListingItem `json:"items"`
			} `json:"news"`
		} `json:"blocks"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: listing payload: %v", ErrMalformedPayload, err)
	}
	if len(payload.Blocks) == 0 {
		return nil, fmt.Errorf("%w: listing has no blocks", ErrMalformedPayload)
	}

	return payload.Blocks[0].News.Items, nil
}

// FetchArticle retrieves the full story body for a relative story path.
func (c *client) FetchArticle(ctx context.Context, language, storyPath string) (*Article, error) {
	origin, ok := c.cfg.Source.Origins[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	target, err := url.JoinPath(origin, storyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: story path %q: %v", ErrMalformedPayload, storyPath, err)
	}

	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}

	raw, err := extractInitData(body, ".tv-content")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Story struct {
			ASTDescription   json.RawMessage `json:"astDescription"`
			ShortDescription string          `json:"shortDescription"`
			Copyright        string          `json:"copyright"`
		} `json:"story"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: article payload: %v", ErrMalformedPayload, err)
	}

	article := &Article{
		ShortDescription: payload.Story.ShortDescription,
		Copyright:        payload.Story.Copyright,
	}
	if len(payload.Story.ASTDescription) > 0 {
		var node ASTNode
		if err := json.Unmarshal(payload.Story.ASTDescription, &node); err != nil {
			return nil, fmt.Errorf("%w: article body AST: %v", ErrMalformedPayload, err)
		}
		article.ASTDescription = &node
		article.RawASTJSON = string(payload.Story.ASTDescription)
	}

	return article, nil
}

// FetchSymbolMetadata queries the scanner endpoint for one ticker.
func (c *client) FetchSymbolMetadata(ctx context.Context, symbol string) (*SymbolMetadata, error) {
	payload := map[string]interface{}{
		"symbols": map[string]interface{}{"tickers": []string{symbol}},
		"columns": []string{"description", "sector", "logoid", "currency", "close", "Perf.W", "Perf.1M", "Perf.Y"},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	body, err := c.send(ctx, http.MethodPost, c.cfg.Source.ScannerURL, string(jsonPayload))
	if err != nil {
		return nil, err
	}

	var response struct {
		Data []struct {
			Symbol string        `json:"s"`
			Fields []interface{} `json:"d"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: scanner payload: %v", ErrMalformedPayload, err)
	}
	if len(response.Data) == 0 || len(response.Data[0].Fields) < 8 {
		return nil, fmt.Errorf("%w: scanner returned no data for %s", ErrMalformedPayload, symbol)
	}

	fields := response.Data[0].Fields
	return &SymbolMetadata{
		Symbol:      symbol,
		Description: asString(fields[0]),
		Sector:      asString(fields[1]),
		LogoID:      asString(fields[2]),
		Currency:    asString(fields[3]),
		Close:       asFloat(fields[4]),
		PerfWeek:    asFloat(fields[5]),
		PerfMonth:   asFloat(fields[6]),
		PerfYear:    asFloat(fields[7]),
	}, nil
}

// extractInitData locates the init-data script tag (optionally under a parent
// selector), decodes its single dynamically-named top-level key and returns
// that key's value.
func extractInitData(html []byte, parentSelector string) (json.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	selector := initDataSelector
	if parentSelector != "" {
		selector = parentSelector + " " + initDataSelector
	}

	script := doc.Find(selector).First()
	if script.Length() == 0 {
		return nil, fmt.Errorf("%w: init-data script tag not found", ErrMalformedPayload)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(script.Text()), &envelope); err != nil {
		return nil, fmt.Errorf("%w: init-data is not valid JSON: %v", ErrMalformedPayload, err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("%w: init-data has %d top-level keys, want 1", ErrMalformedPayload, len(envelope))
	}

	for _, raw := range envelope {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: init-data is empty", ErrMalformedPayload)
}

func (c *client) get(ctx context.Context, target string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, target, "")
}

func (c *client) send(ctx context.Context, method, target, jsonStr string) ([]byte, error) {
	if err := c.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var body io.Reader
	if jsonStr != "" {
		body = strings.NewReader(jsonStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	if jsonStr != "" {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/plain, */*")
	} else {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.5")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", ErrSourceUnavailable, resp.StatusCode, target)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	return data, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}
