package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jxeduyun/mathtutor/config"
	"github.com/jxeduyun/mathtutor/internal/qa"
)

// Client performs top-1 similarity searches against the external
// recommendation service. Both operations distinguish a transport/HTTP
// failure (non-nil error) from an empty result set (ok == false); either way
// the caller falls back, it never crashes.
type Client struct {
	baseURL    string
	topK       int
	httpClient *http.Client
	logger     *log.Logger
}

func New(cfg config.RecommendationConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		topK:       topK,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(log.Writer(), "[RECOMMEND] ", log.LstdFlags),
	}
}

// FindCourse looks up the best-matching course for a query.
func (c *Client) FindCourse(ctx context.Context, query string) (qa.CourseMatch, bool, error) {
	var matches []qa.CourseMatch
	u := c.searchURL("/api/v1/recommendation/rag/search/courses", query)
	if err := c.getJSON(ctx, u, &matches); err != nil {
		c.logger.Printf("course search failed: %v", err)
		return qa.CourseMatch{}, false, err
	}
	if len(matches) == 0 {
		c.logger.Printf("course search returned no match for %q", query)
		return qa.CourseMatch{}, false, nil
	}
	return matches[0], true, nil
}

// FindReport looks up the best-matching report segment within a course.
func (c *Client) FindReport(ctx context.Context, courseID, query string) (qa.ReportMatch, bool, error) {
	var matches []qa.ReportMatch
	u := c.searchURL("/api/v1/recommendation/rag/search/reports/"+url.PathEscape(courseID), query)
	if err := c.getJSON(ctx, u, &matches); err != nil {
		c.logger.Printf("report search failed for course %s: %v", courseID, err)
		return qa.ReportMatch{}, false, err
	}
	if len(matches) == 0 {
		c.logger.Printf("report search returned no match for course %s", courseID)
		return qa.ReportMatch{}, false, nil
	}
	return matches[0], true, nil
}

func (c *Client) searchURL(path, query string) string {
	q := url.Values{}
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(c.topK))
	return c.baseURL + path + "?" + q.Encode()
}

// getJSON issues one GET and decodes the service's {"data": [...]} envelope
// into out. No retries; a failed lookup takes the fallback path immediately.
func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("recommendation status %d: %s", resp.StatusCode, string(b))
	}
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
