package robot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/internal/uuidutil"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/selector"
	"github.com/hairizuanbinnoorazman/search-robot/storage"
)

// ErrNoResult is reported when a search completed but yielded no organic result.
var ErrNoResult = errors.New("no results found")

// Result modes record which strategy produced a SearchResult.
const (
	ModeUI       = "ui"
	ModeDirect   = "direct"
	ModeAIPlan   = "ai_plan"
	fallbackMode = "fallback_core_"
)

// FallbackMode tags a mode produced by the deterministic routine running as
// the agent's fallback, e.g. "fallback_core_ui".
func FallbackMode(mode string) string {
	return fallbackMode + mode
}

// SearchResult is the first organic result of a search. Title and URL are
// empty when nothing was found.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Mode  string `json:"mode"`
}

// Found reports whether the search produced a result.
func (r SearchResult) Found() bool {
	return r.Title != "" && r.URL != ""
}

var (
	bannerSelectors = []string{
		"button:has-text('Accept')",
		"button:has-text('I Agree')",
		"[aria-label*='Accept']",
		"#onetrust-accept-btn-handler",
		"[data-testid='cookie-accept']",
	}

	searchAffordance = selector.Role("button", "Search")

	searchBoxes = []selector.Target{
		selector.Role("textbox", "Search"),
		selector.CSS("input[type='search']"),
		selector.CSS("input[name='q']"),
		selector.CSS("input[aria-label='Search']"),
	}

	queryParams = []string{"q", "query", "search"}

	resultContainers = []string{
		"main",
		"[role='main']",
		"#main-content",
		".search-results",
	}

	resultLinkPatterns = []string{
		"main article h3 a",
		"main .search-results a",
		"article h2 a",
		"main a.search-result__link",
		"main li a[href]:not([href^='#'])",
	}

	genericResultLinks = "main a[href]"

	navigationalText = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(see|view|show) all`),
		regexp.MustCompile(`(?i)all la city websites`),
		regexp.MustCompile(`(?i)^more results`),
	}

	searchPath = regexp.MustCompile(`(?i)(^|/)search(/|\.|$)`)
)

const (
	patternScanLimit = 10
	genericScanLimit = 40
)

// Timeouts bounds every browser call made by the Searcher.
type Timeouts struct {
	Navigate    time.Duration
	Action      time.Duration
	Banner      time.Duration
	ResultsPage time.Duration
	Container   time.Duration
	Read        time.Duration
}

// DefaultTimeouts returns the bounds used against live sites.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigate:    20 * time.Second,
		Action:      6 * time.Second,
		Banner:      1500 * time.Millisecond,
		ResultsPage: 20 * time.Second,
		Container:   10 * time.Second,
		Read:        2 * time.Second,
	}
}

// Searcher runs the fixed search routine against one site.
type Searcher struct {
	base     *url.URL
	store    storage.ArtifactStore
	retry    RetryPolicy
	timeouts Timeouts
	log      logger.Logger
}

// SearcherOption customises a Searcher.
type SearcherOption func(*Searcher)

// WithRetryPolicy overrides the policy used by the click and fill primitives.
func WithRetryPolicy(p RetryPolicy) SearcherOption {
	return func(s *Searcher) { s.retry = p }
}

// WithTimeouts overrides the default browser call bounds.
func WithTimeouts(t Timeouts) SearcherOption {
	return func(s *Searcher) { s.timeouts = t }
}

// WithArtifactStore sets where diagnostic screenshots are written.
func WithArtifactStore(store storage.ArtifactStore) SearcherOption {
	return func(s *Searcher) { s.store = store }
}

// NewSearcher creates a Searcher for the site rooted at baseURL.
func NewSearcher(baseURL string, log logger.Logger, opts ...SearcherOption) (*Searcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	s := &Searcher{
		base:     base,
		store:    storage.Discard{},
		retry:    DefaultRetryPolicy(),
		timeouts: DefaultTimeouts(),
		log:      logger.Component(log, "robot"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseURL returns the normalised site root.
func (s *Searcher) BaseURL() *url.URL {
	u := *s.base
	return &u
}

// Search loads the homepage, submits query and extracts the first organic
// result. A search that finds nothing is not an error; only driver faults,
// failed homepage loads and cancellation are returned.
func (s *Searcher) Search(ctx context.Context, page browser.Page, query string) (SearchResult, error) {
	s.log.Info(ctx, "goto homepage", map[string]interface{}{"url": s.base.String()})
	if err := page.Goto(s.base.String(), s.timeouts.Navigate); err != nil {
		return SearchResult{}, fmt.Errorf("load homepage: %w", err)
	}

	if err := s.dismissBanners(ctx, page); err != nil {
		return SearchResult{}, err
	}

	s.log.Debug(ctx, "open search ui", nil)
	BestEffort(ctx, s.log, "open search affordance", func() error {
		return WaitClick(ctx, page, s.retry, searchAffordance, s.timeouts.Action)
	})
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}

	typed, err := s.typeQuery(ctx, page, query)
	if err != nil {
		return SearchResult{}, err
	}

	mode := ModeDirect
	if typed {
		mode = ModeUI
		if err := page.Press("Enter"); err != nil {
			return SearchResult{}, fmt.Errorf("submit search: %w", err)
		}
	} else if err := s.gotoDirect(ctx, page, query); err != nil {
		return SearchResult{}, err
	}

	if err := s.waitForResultsPage(page); err != nil {
		return SearchResult{}, err
	}
	s.log.Debug(ctx, "results page", map[string]interface{}{"url": page.URL()})
	if err := s.waitForContainer(page); err != nil {
		return SearchResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}

	s.log.Info(ctx, "locate first result", map[string]interface{}{"mode": mode})
	title, href, err := s.firstResult(page)
	if err != nil {
		return SearchResult{}, err
	}
	if title == "" {
		s.captureDiagnostics(ctx, page)
		return SearchResult{Mode: mode}, nil
	}

	return SearchResult{Title: title, URL: href, Mode: mode}, nil
}

func (s *Searcher) dismissBanners(ctx context.Context, page browser.Page) error {
	for _, sel := range bannerSelectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		loc := page.Locator(sel).First()
		visible, err := loc.IsVisible()
		if err != nil {
			if browser.IsFault(err) {
				return err
			}
			continue
		}
		if !visible {
			continue
		}
		BestEffort(ctx, s.log, "dismiss banner", func() error {
			return loc.Click(s.timeouts.Banner)
		})
	}
	return nil
}

func (s *Searcher) typeQuery(ctx context.Context, page browser.Page, query string) (bool, error) {
	for _, target := range searchBoxes {
		err := WaitFill(ctx, page, s.retry, target, query, s.timeouts.Action)
		if err == nil {
			s.log.Debug(ctx, "query typed", map[string]interface{}{"target": target.String()})
			return true, nil
		}
		if browser.IsFault(err) || ctx.Err() != nil {
			return false, err
		}
		s.log.Debug(ctx, "search box unavailable", map[string]interface{}{
			"target": target.String(),
			"error":  err.Error(),
		})
	}
	return false, nil
}

// DirectSearchURL builds the results URL for query using the given parameter name.
func (s *Searcher) DirectSearchURL(param, query string) string {
	ref := &url.URL{Path: "search", RawQuery: url.Values{param: {query}}.Encode()}
	return s.base.ResolveReference(ref).String()
}

func (s *Searcher) gotoDirect(ctx context.Context, page browser.Page, query string) error {
	s.log.Info(ctx, "fallback to direct search url", nil)
	for _, param := range queryParams {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := s.DirectSearchURL(param, query)
		err := page.Goto(target, s.timeouts.Navigate)
		if err == nil {
			return nil
		}
		if browser.IsFault(err) {
			return err
		}
		s.log.Debug(ctx, "direct search url failed", map[string]interface{}{
			"url":   target,
			"error": err.Error(),
		})
	}
	return nil
}

func (s *Searcher) waitForResultsPage(page browser.Page) error {
	pattern := regexp.MustCompile(regexp.QuoteMeta(s.base.Host) + `/.*search`)
	err := page.WaitForURL(pattern, s.timeouts.ResultsPage)
	if err == nil {
		return nil
	}
	if browser.IsFault(err) {
		return err
	}
	if err := page.WaitForDOMReady(s.timeouts.ResultsPage); err != nil && browser.IsFault(err) {
		return err
	}
	return nil
}

func (s *Searcher) waitForContainer(page browser.Page) error {
	per := s.timeouts.Container / time.Duration(len(resultContainers))
	for _, sel := range resultContainers {
		err := page.Locator(sel).First().WaitFor(per)
		if err == nil {
			return nil
		}
		if browser.IsFault(err) {
			return err
		}
	}
	return nil
}

func (s *Searcher) firstResult(page browser.Page) (string, string, error) {
	for _, pattern := range resultLinkPatterns {
		title, href, err := s.scan(page.Locator(pattern), patternScanLimit)
		if err != nil || title != "" {
			return title, href, err
		}
	}
	return s.scan(page.Locator(genericResultLinks), genericScanLimit)
}

// scan returns the first organic link among the first limit matches of loc.
func (s *Searcher) scan(loc browser.Locator, limit int) (string, string, error) {
	count, err := loc.Count()
	if err != nil {
		if browser.IsFault(err) {
			return "", "", err
		}
		return "", "", nil
	}
	if count > limit {
		count = limit
	}

	for i := 0; i < count; i++ {
		title, href, err := s.candidate(loc.Nth(i))
		if err != nil {
			return "", "", err
		}
		if title != "" {
			return title, href, nil
		}
	}
	return "", "", nil
}

func (s *Searcher) candidate(el browser.Locator) (string, string, error) {
	visible, err := el.IsVisible()
	if err != nil || !visible {
		return "", "", faultOnly(err)
	}
	text, err := el.InnerText(s.timeouts.Read)
	if err != nil {
		return "", "", faultOnly(err)
	}
	raw, err := el.GetAttribute("href", s.timeouts.Read)
	if err != nil {
		return "", "", faultOnly(err)
	}

	title := strings.TrimSpace(text)
	href := browser.AbsoluteURL(s.base, raw)
	if title == "" || href == "" || !s.IsOrganic(title, raw) {
		return "", "", nil
	}
	return title, href, nil
}

// IsOrganic reports whether a link with the given text and raw href is a
// genuine result rather than navigation back into search.
func (s *Searcher) IsOrganic(text, href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return false
	}
	for _, re := range navigationalText {
		if re.MatchString(strings.TrimSpace(text)) {
			return false
		}
	}

	u, err := url.Parse(browser.AbsoluteURL(s.base, href))
	if err != nil {
		return false
	}
	return !searchPath.MatchString(u.Path)
}

func (s *Searcher) captureDiagnostics(ctx context.Context, page browser.Page) {
	BestEffort(ctx, s.log, "diagnostic screenshot", func() error {
		shot, err := page.Screenshot()
		if err != nil {
			return err
		}
		location, err := s.store.Put(ctx, uuidutil.ArtifactName("no-results", "png"), bytes.NewReader(shot))
		if err != nil {
			return err
		}
		s.log.Warn(ctx, "no result found, screenshot saved", map[string]interface{}{"location": location})
		return nil
	})
}

func faultOnly(err error) error {
	if err != nil && browser.IsFault(err) {
		return err
	}
	return nil
}
