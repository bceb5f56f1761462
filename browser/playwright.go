package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/playwright-community/playwright-go"
)

// Options controls how the browser is launched.
type Options struct {
	Headless bool
	// Args are passed to chromium verbatim.
	Args []string
	// Install downloads the playwright driver and chromium before launching.
	Install       bool
	LaunchTimeout time.Duration
}

// Session owns one playwright driver, one browser, one context and one page.
// It is scoped to a single run.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *pwPage
	logger  logger.Logger
}

// Launch starts chromium and opens a fresh page. On failure everything that
// was already started is torn down again.
func Launch(ctx context.Context, opts Options, log logger.Logger) (*Session, error) {
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = 60 * time.Second
	}

	runOpts := &playwright.RunOptions{Browsers: []string{"chromium"}}
	if opts.Install {
		log.Info(ctx, "installing playwright driver", nil)
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	s := &Session{pw: pw, logger: log}

	s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
		Timeout:  millis(opts.LaunchTimeout),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch chromium: %w", wrapErr(err))
	}

	s.context, err = s.browser.NewContext()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", wrapErr(err))
	}

	page, err := s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open page: %w", wrapErr(err))
	}
	s.page = &pwPage{page: page}

	log.Debug(ctx, "browser session ready", map[string]interface{}{
		"headless": opts.Headless,
	})
	return s, nil
}

// Page returns the session's single page.
func (s *Session) Page() Page {
	return s.page
}

// Close releases the context, browser and driver in that order. Every step
// is attempted even if an earlier one fails; failures are joined.
func (s *Session) Close() error {
	var errs []error
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
		s.context = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
		s.pw = nil
	}
	return errors.Join(errs...)
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   millis(timeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return wrapErr(err)
}

func (p *pwPage) Locator(selector string) Locator {
	return &pwLocator{loc: p.page.Locator(selector)}
}

func (p *pwPage) GetByRole(role, name string) Locator {
	var opts playwright.PageGetByRoleOptions
	if name != "" {
		opts.Name = name
	}
	return &pwLocator{loc: p.page.GetByRole(playwright.AriaRole(role), opts)}
}

func (p *pwPage) GetByText(text string) Locator {
	return &pwLocator{loc: p.page.GetByText(text)}
}

func (p *pwPage) WaitForURL(pattern *regexp.Regexp, timeout time.Duration) error {
	return wrapErr(p.page.WaitForURL(pattern, playwright.PageWaitForURLOptions{
		Timeout: millis(timeout),
	}))
}

func (p *pwPage) WaitForDOMReady(timeout time.Duration) error {
	return wrapErr(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: millis(timeout),
	}))
}

func (p *pwPage) Press(key string) error {
	return wrapErr(p.page.Keyboard().Press(key))
}

func (p *pwPage) Screenshot() ([]byte, error) {
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	return data, wrapErr(err)
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

type pwLocator struct {
	loc playwright.Locator
}

func (l *pwLocator) First() Locator {
	return &pwLocator{loc: l.loc.First()}
}

func (l *pwLocator) Nth(i int) Locator {
	return &pwLocator{loc: l.loc.Nth(i)}
}

func (l *pwLocator) Count() (int, error) {
	n, err := l.loc.Count()
	return n, wrapErr(err)
}

func (l *pwLocator) WaitFor(timeout time.Duration) error {
	return wrapErr(l.loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: millis(timeout),
	}))
}

func (l *pwLocator) IsVisible() (bool, error) {
	visible, err := l.loc.IsVisible()
	return visible, wrapErr(err)
}

func (l *pwLocator) Click(timeout time.Duration) error {
	return wrapErr(l.loc.Click(playwright.LocatorClickOptions{
		Timeout: millis(timeout),
	}))
}

func (l *pwLocator) Fill(text string, timeout time.Duration) error {
	return wrapErr(l.loc.Fill(text, playwright.LocatorFillOptions{
		Timeout: millis(timeout),
	}))
}

func (l *pwLocator) InnerText(timeout time.Duration) (string, error) {
	text, err := l.loc.InnerText(playwright.LocatorInnerTextOptions{
		Timeout: millis(timeout),
	})
	return text, wrapErr(err)
}

func (l *pwLocator) GetAttribute(name string, timeout time.Duration) (string, error) {
	value, err := l.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{
		Timeout: millis(timeout),
	})
	return value, wrapErr(err)
}
