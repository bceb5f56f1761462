package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://lacity.gov/"

type recordingStore struct {
	names []string
	err   error
}

func (s *recordingStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	s.names = append(s.names, name)
	return "/tmp/" + name, nil
}

func newTestSearcher(t *testing.T, opts ...SearcherOption) *Searcher {
	t.Helper()
	opts = append([]SearcherOption{WithRetryPolicy(fastRetry)}, opts...)
	s, err := NewSearcher(baseURL, logger.NewTestLogger(), opts...)
	require.NoError(t, err)
	return s
}

// resultsPage installs a results listing on p, as a submitted search would.
func resultsPage(p *testutil.FakePage, links ...*testutil.Element) {
	p.SetCSS("main", &testutil.Element{})
	p.SetCSS("main article h3 a", links...)
}

func TestSearch_TypedQuery(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	page.SetRole("textbox", "Search", &testutil.Element{})
	page.OnPress = func(p *testutil.FakePage, key string) error {
		p.SetURL(baseURL + "search?q=311")
		resultsPage(p, &testutil.Element{Text: "  MyLA311  ", Href: "/myla311"})
		return nil
	}

	log := logger.NewTestLogger()
	s, err := NewSearcher(baseURL, log, WithRetryPolicy(fastRetry))
	require.NoError(t, err)

	result, err := s.Search(context.Background(), page, "311")
	require.NoError(t, err)

	assert.Equal(t, SearchResult{Title: "MyLA311", URL: "https://lacity.gov/myla311", Mode: ModeUI}, result)
	assert.True(t, result.Found())
	landed := ""
	for _, e := range log.Entries() {
		if e.Message == "results page" {
			landed, _ = e.Fields["url"].(string)
		}
	}
	assert.Equal(t, baseURL+"search?q=311", landed)
	assert.Equal(t, []string{baseURL}, page.Visited)
	assert.Equal(t, "311", page.Filled[testutil.RoleKey("textbox", "Search")])
	assert.Equal(t, []string{"Enter"}, page.Pressed)
}

func TestSearch_ResultsPageWait(t *testing.T) {
	tests := []struct {
		name        string
		domReadyErr error
		container   bool
		wantFault   bool
	}{
		{name: "url and load state both time out", domReadyErr: fmt.Errorf("%w: load state", browser.ErrTimeout), container: true},
		{name: "no result container", container: false},
		{name: "page closed while waiting", domReadyErr: fmt.Errorf("%w: load state", browser.ErrClosed), container: true, wantFault: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := testutil.NewFakePage("about:blank")
			page.DOMReadyErr = tt.domReadyErr
			page.SetRole("textbox", "Search", &testutil.Element{})
			page.OnPress = func(p *testutil.FakePage, key string) error {
				if tt.container {
					p.SetCSS("main", &testutil.Element{})
				}
				p.SetCSS("main article h3 a", &testutil.Element{Text: "MyLA311", Href: "/myla311"})
				return nil
			}

			result, err := newTestSearcher(t).Search(context.Background(), page, "311")
			if tt.wantFault {
				assert.True(t, browser.IsFault(err))
				assert.Equal(t, []string{"Enter"}, page.Pressed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SearchResult{Title: "MyLA311", URL: "https://lacity.gov/myla311", Mode: ModeUI}, result)
		})
	}
}

func TestSearch_FallsBackToAttributeSelectors(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	page.SetCSS("input[type='search']", &testutil.Element{Hidden: true})
	page.SetCSS("input[name='q']", &testutil.Element{})
	page.OnPress = func(p *testutil.FakePage, key string) error {
		resultsPage(p, &testutil.Element{Text: "311 Services", Href: "https://lacity.gov/311"})
		return nil
	}

	result, err := newTestSearcher(t).Search(context.Background(), page, "311")
	require.NoError(t, err)

	assert.Equal(t, ModeUI, result.Mode)
	assert.Equal(t, "311", page.Filled[testutil.CSSKey("input[name='q']")])
	assert.NotContains(t, page.Filled, testutil.CSSKey("input[type='search']"))
}

func TestSearch_DirectNavigation(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	page.OnGoto = func(p *testutil.FakePage, url string) error {
		switch {
		case strings.Contains(url, "?q="):
			return fmt.Errorf("%w: navigation", browser.ErrTimeout)
		case strings.Contains(url, "?query="):
			resultsPage(p, &testutil.Element{Text: "MyLA311", Href: "/myla311"})
		}
		return nil
	}

	result, err := newTestSearcher(t).Search(context.Background(), page, "311")
	require.NoError(t, err)

	assert.Equal(t, ModeDirect, result.Mode)
	assert.Equal(t, "https://lacity.gov/myla311", result.URL)
	assert.Equal(t, []string{
		baseURL,
		"https://lacity.gov/search?q=311",
		"https://lacity.gov/search?query=311",
	}, page.Visited)
	assert.Empty(t, page.Pressed)
}

func TestSearch_NoResult(t *testing.T) {
	tests := []struct {
		name     string
		store    *recordingStore
		shotErr  error
		wantSave int
	}{
		{name: "screenshot saved", store: &recordingStore{}, wantSave: 1},
		{name: "store failure ignored", store: &recordingStore{err: errors.New("disk full")}},
		{name: "screenshot failure ignored", store: &recordingStore{}, shotErr: errors.New("crashed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := testutil.NewFakePage("about:blank")
			page.ScreenshotErr = tt.shotErr
			page.SetCSS("main", &testutil.Element{})

			result, err := newTestSearcher(t, WithArtifactStore(tt.store)).Search(context.Background(), page, "311")
			require.NoError(t, err)

			assert.False(t, result.Found())
			assert.Equal(t, ModeDirect, result.Mode)
			assert.Equal(t, 1, page.Screenshots)
			assert.Len(t, tt.store.names, tt.wantSave)
		})
	}
}

func TestSearch_SkipsNavigationalLinks(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	page.SetCSS("main", &testutil.Element{})
	page.SetCSS("main li a[href]:not([href^='#'])",
		&testutil.Element{Text: "See all results", Href: "/news"},
		&testutil.Element{Text: "All LA City Websites", Href: "/directory"},
		&testutil.Element{Text: "Search again", Href: "/search?q=311"},
		&testutil.Element{Text: "Hidden", Href: "/hidden", Hidden: true},
		&testutil.Element{Text: "", Href: "/empty"},
		&testutil.Element{Text: "Call 311", Href: "services/311"},
	)

	result, err := newTestSearcher(t).Search(context.Background(), page, "311")
	require.NoError(t, err)
	assert.Equal(t, "Call 311", result.Title)
	assert.Equal(t, "https://lacity.gov/services/311", result.URL)
}

func TestSearch_GenericFallbackScan(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	page.SetCSS("main a[href]",
		&testutil.Element{Text: "Skip to content", Href: "#content"},
		&testutil.Element{Text: "MyLA311", Href: "/myla311"},
	)

	result, err := newTestSearcher(t).Search(context.Background(), page, "311")
	require.NoError(t, err)
	assert.Equal(t, "MyLA311", result.Title)
}

func TestSearch_DismissesVisibleBanners(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	page.SetCSS("#onetrust-accept-btn-handler", &testutil.Element{})
	page.SetCSS("button:has-text('Accept')", &testutil.Element{Hidden: true})
	page.SetCSS("[data-testid='cookie-accept']", &testutil.Element{
		ClickErr: fmt.Errorf("%w: covered", browser.ErrTimeout),
	})

	_, err := newTestSearcher(t).Search(context.Background(), page, "311")
	require.NoError(t, err)
	assert.Contains(t, page.Clicked, testutil.CSSKey("#onetrust-accept-btn-handler"))
	assert.NotContains(t, page.Clicked, testutil.CSSKey("button:has-text('Accept')"))
}

func TestSearch_Faults(t *testing.T) {
	page := testutil.NewFakePage("about:blank")
	page.Closed = true

	_, err := newTestSearcher(t).Search(context.Background(), page, "311")
	assert.True(t, browser.IsFault(err))
}

func TestSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := testutil.NewFakePage("about:blank")
	page.OnGoto = func(p *testutil.FakePage, url string) error {
		cancel()
		return nil
	}

	_, err := newTestSearcher(t).Search(ctx, page, "311")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSearcher_InvalidBase(t *testing.T) {
	for _, raw := range []string{"", "lacity.gov", "://bad"} {
		_, err := NewSearcher(raw, logger.NewTestLogger())
		assert.Error(t, err, raw)
	}
}

func TestSearcher_DirectSearchURL(t *testing.T) {
	s := newTestSearcher(t)
	assert.Equal(t, "https://lacity.gov/search?q=311", s.DirectSearchURL("q", "311"))
	assert.Equal(t, "https://lacity.gov/search?query=street+lights", s.DirectSearchURL("query", "street lights"))

	nested, err := NewSearcher("https://example.org/en", logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/en/search?search=311", nested.DirectSearchURL("search", "311"))
}

func TestSearcher_IsOrganic(t *testing.T) {
	s := newTestSearcher(t)

	tests := []struct {
		text string
		href string
		want bool
	}{
		{"MyLA311", "/myla311", true},
		{"Report a pothole", "https://other.example/pothole", true},
		{"Research library", "/research", true},
		{"Search and Rescue unit", "/departments/search-and-rescue", true},
		{"Searchlight program", "/searchlight-program", true},
		{"Site search", "/search.html", false},
		{"See all results", "/news", false},
		{"View All", "/news", false},
		{"show all departments", "/departments", false},
		{"All LA City Websites", "/directory", false},
		{"More results", "/page/2", false},
		{"Next", "/search?page=2", false},
		{"Results", "https://lacity.gov/Search/results", false},
		{"Top", "#top", false},
		{"Menu", "javascript:void(0)", false},
		{"Blank", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsOrganic(tt.text, tt.href))
		})
	}
}
