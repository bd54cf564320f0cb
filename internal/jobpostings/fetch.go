package jobpostings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout bounds a single job posting fetch.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for job posting requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ResumeGenBot/1.0)"

const maxFetchBytes = 2 << 20

var (
	// ErrUnreachable indicates the URL could not be fetched.
	ErrUnreachable = errors.New("job posting unreachable")

	// ErrNotHTML indicates the URL returned a non-HTML payload.
	ErrNotHTML = errors.New("job posting is not an HTML page")

	// ErrEmptyContent indicates no usable text remained after extraction.
	ErrEmptyContent = errors.New("no job description text found on page")
)

// FetchError wraps a fetch failure with the URL that caused it.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch job posting %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch job posting %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Fetcher downloads job postings and extracts their main text.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher constructs a Fetcher with default timeout and user agent.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: DefaultTimeout},
		UserAgent: DefaultUserAgent,
	}
}

// Resolve returns the job description text for an input that is either a URL
// or literal text. For URLs the page is fetched and the posting text extracted.
func (f *Fetcher) Resolve(ctx context.Context, input string) (text string, sourceURL string, err error) {
	trimmed := strings.TrimSpace(input)
	if !IsURL(trimmed) {
		return trimmed, "", nil
	}
	text, err = f.Fetch(ctx, trimmed)
	if err != nil {
		return "", trimmed, err
	}
	return text, trimmed, nil
}

// Fetch downloads the URL and extracts the main posting text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &FetchError{URL: rawURL, Message: "invalid URL", Cause: ErrUnreachable}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "build request", Cause: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "request failed", Cause: ErrUnreachable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode), Cause: ErrUnreachable}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return "", &FetchError{URL: rawURL, Message: "content type " + contentType, Cause: ErrNotHTML}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "read body", Cause: ErrUnreachable}
	}

	text, err := ExtractPostingText(string(body))
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "extract text", Cause: err}
	}
	return text, nil
}

// ExtractPostingText parses HTML and returns the job posting text. Noise
// elements are stripped first, then job board selectors are tried in order
// with a fallback to the page body.
func ExtractPostingText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()

	var mainContent *goquery.Selection
	for _, selector := range jobPostingSelectors() {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	text := cleanWhitespace(mainContent.Text())
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

// jobPostingSelectors lists content selectors in priority order for job boards.
func jobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
