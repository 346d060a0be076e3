// Package arxiv fetches paper metadata from the arXiv Atom API and the
// official arXiv HTML rendering of a paper's full text.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"resintel/internal/logger"
	"resintel/internal/model"
)

const apiEndpoint = "http://export.arxiv.org/api/query"

const userAgent = "resintel/1.0 (+https://github.com/)"

// Client is a rate-limited, retrying arXiv Atom API client. A single
// Client enforces one in-flight request at a time, spaced at least
// RequestDelay apart, matching arXiv's published rate-limit guidance.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	inFlight   chan struct{}
	pageSize   int
	maxPages   int
	maxRetries int
	breaker    *gobreaker.CircuitBreaker
}

// Config configures a Client.
type Config struct {
	Timeout      time.Duration
	PageSize     int
	MaxPages     int
	RequestDelay time.Duration
	MaxRetries   int
}

// NewClient builds a Client from cfg, filling in sane defaults for any zero fields.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 3 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "arxiv-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		inFlight:   make(chan struct{}, 1),
		pageSize:   cfg.PageSize,
		maxPages:   cfg.MaxPages,
		maxRetries: cfg.MaxRetries,
		breaker:    breaker,
	}
}

// FetchRecent fetches the most recent papers across categories published or
// updated within the last `hours`, deduplicated by id and filtered to only
// those whose primary category is one of the requested categories.
func (c *Client) FetchRecent(ctx context.Context, categories []string, hours int) ([]model.Paper, error) {
	type catResult struct {
		papers []model.Paper
		err    error
	}

	results := make(chan catResult, len(categories))
	for _, cat := range categories {
		cat := cat
		go func() {
			papers, err := c.fetchCategoryPaginated(ctx, cat, hours)
			results <- catResult{papers: papers, err: err}
		}()
	}

	var all []model.Paper
	for range categories {
		r := <-results
		if r.err != nil {
			logger.Warn("arxiv category fetch failed", map[string]any{"error": r.err.Error()})
			continue
		}
		all = append(all, r.papers...)
	}

	seen := make(map[string]struct{}, len(all))
	unique := make([]model.Paper, 0, len(all))
	for _, p := range all {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		unique = append(unique, p)
	}

	target := make(map[string]struct{}, len(categories))
	for _, cat := range categories {
		target[cat] = struct{}{}
	}

	filtered := make([]model.Paper, 0, len(unique))
	for _, p := range unique {
		if _, ok := target[p.PrimaryCategory]; ok {
			filtered = append(filtered, p)
		}
	}

	filtered = filterByHours(filtered, hours)

	logger.Info("arxiv fetch complete", map[string]any{
		"raw":      len(all),
		"unique":   len(unique),
		"filtered": len(filtered),
	})

	return filtered, nil
}

// FetchByIDs fetches papers by explicit arXiv id.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) ([]model.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	c.inFlight <- struct{}{}
	defer func() { <-c.inFlight }()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u := apiEndpoint + "?" + url.Values{"id_list": {strings.Join(ids, ",")}}.Encode()
	return c.fetchAndParse(ctx, u)
}

func filterByHours(papers []model.Paper, hours int) []model.Paper {
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	out := make([]model.Paper, 0, len(papers))
	for _, p := range papers {
		if !p.Latest().Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// fetchCategoryPaginated performs single-in-flight, spaced requests per
// gate, paginating until a short page, a time-window cutoff, or maxPages is hit.
func (c *Client) fetchCategoryPaginated(ctx context.Context, category string, hours int) ([]model.Paper, error) {
	c.inFlight <- struct{}{}
	defer func() { <-c.inFlight }()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	var collected []model.Paper
	start := 0
	for page := 0; page < c.maxPages; page++ {
		u := buildCategoryQuery(category, c.pageSize, start)
		pagePapers, err := c.fetchAndParse(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("fetching category %s page %d: %w", category, page, err)
		}
		if len(pagePapers) == 0 {
			break
		}
		collected = append(collected, pagePapers...)

		if len(pagePapers) < c.pageSize {
			break
		}

		oldest := pagePapers[len(pagePapers)-1].Latest()
		if oldest.Before(cutoff) {
			break
		}

		start += c.pageSize
		if err := c.limiter.Wait(ctx); err != nil {
			return collected, err
		}
	}

	return collected, nil
}

func buildCategoryQuery(category string, maxResults, start int) string {
	v := url.Values{
		"search_query": {"cat:" + category},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}
	return apiEndpoint + "?" + v.Encode()
}

// fetchAndParse performs one HTTP GET with retry, honoring 429 with a fixed
// 30s wait and 5xx/timeout/network errors with exponential backoff, wrapped
// in a circuit breaker that trips after repeated consecutive failures.
func (c *Client) fetchAndParse(ctx context.Context, u string) ([]model.Paper, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doRequest(ctx, u)
		})
		if err == nil {
			body := result.([]byte)
			return parseFeed(body)
		}

		lastErr = err

		if wait, retryable := retryWait(err, attempt); retryable {
			logger.Warn("arxiv request retrying", map[string]any{"attempt": attempt + 1, "wait_seconds": wait.Seconds(), "error": err.Error()})
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		break
	}

	return nil, fmt.Errorf("arxiv request failed after retries: %w", lastErr)
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

func (c *Client) doRequest(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &httpStatusError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{status: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

// retryWait decides whether and how long to wait before retrying, given the
// error from doRequest. 429 always waits a fixed 30s; 5xx/timeout/network
// errors use exponential backoff (1s, 2s, 4s, ...).
func retryWait(err error, attempt int) (time.Duration, bool) {
	var statusErr *httpStatusError
	if e, ok := err.(*httpStatusError); ok {
		statusErr = e
	}
	if statusErr != nil {
		if statusErr.status == http.StatusTooManyRequests {
			return 30 * time.Second, true
		}
		if statusErr.status >= 500 {
			return time.Duration(1<<uint(attempt)) * time.Second, true
		}
		return 0, false
	}
	// network/timeout errors also use exponential backoff
	return time.Duration(1<<uint(attempt)) * time.Second, true
}

// --- Atom XML parsing ---

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID              string              `xml:"id"`
	Title           string              `xml:"title"`
	Summary         string              `xml:"summary"`
	Published       string              `xml:"published"`
	Updated         string              `xml:"updated"`
	Authors         []atomAuthor        `xml:"author"`
	Categories      []atomCategory      `xml:"category"`
	PrimaryCategory atomPrimaryCategory `xml:"primary_category"`
	Comment         string              `xml:"comment"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomPrimaryCategory struct {
	Term string `xml:"term,attr"`
}

func parseFeed(body []byte) ([]model.Paper, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing atom feed: %w", err)
	}

	papers := make([]model.Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p, err := entryToPaper(e)
		if err != nil {
			logger.Warn("skipping unparseable arxiv entry", map[string]any{"error": err.Error()})
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func entryToPaper(e atomEntry) (model.Paper, error) {
	id := extractArxivID(e.ID)
	if id == "" {
		return model.Paper{}, fmt.Errorf("could not extract arxiv id from %q", e.ID)
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, a.Name)
	}

	categories := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		categories = append(categories, c.Term)
	}

	primary := e.PrimaryCategory.Term
	if primary == "" && len(categories) > 0 {
		primary = categories[0]
	}

	published := parseAtomTime(e.Published)
	var updated time.Time
	if e.Updated != "" {
		updated = parseAtomTime(e.Updated)
	}

	return model.Paper{
		ID:              id,
		Title:           normalizeWhitespace(e.Title),
		Abstract:        normalizeWhitespace(e.Summary),
		Authors:         authors,
		Categories:      categories,
		PrimaryCategory: primary,
		AbsURL:          "https://arxiv.org/abs/" + id,
		PDFURL:          "https://arxiv.org/pdf/" + id + ".pdf",
		Published:       published,
		Updated:         updated,
		Comment:         strings.TrimSpace(e.Comment),
	}, nil
}

func extractArxivID(entryID string) string {
	parts := strings.Split(entryID, "/")
	if len(parts) == 0 {
		return ""
	}
	last := parts[len(parts)-1]
	if idx := strings.Index(last, "v"); idx > 0 {
		if _, err := strconv.Atoi(last[idx+1:]); err == nil {
			last = last[:idx]
		}
	}
	return last
}

func parseAtomTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(strings.ReplaceAll(s, "\n", " "))
	return strings.TrimSpace(strings.Join(fields, " "))
}
