// Package browser describes the page capability the robot drives and adapts
// playwright-go to it. Everything above this package talks to Page and
// Locator only, so the engine can be exercised against scripted fakes.
package browser

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Page is the subset of a browser tab the robot needs. All calls block until
// they complete or their timeout elapses.
type Page interface {
	// Goto loads url and waits for DOMContentLoaded.
	Goto(url string, timeout time.Duration) error
	Locator(selector string) Locator
	// GetByRole matches by ARIA role and, when name is non-empty, accessible name.
	GetByRole(role, name string) Locator
	GetByText(text string) Locator
	WaitForURL(pattern *regexp.Regexp, timeout time.Duration) error
	WaitForDOMReady(timeout time.Duration) error
	// Press sends a single key, e.g. "Enter", to the focused element.
	Press(key string) error
	Screenshot() ([]byte, error)
	URL() string
}

// Locator is a lazy query over the page. Nothing is looked up until an
// action or a query method is called.
type Locator interface {
	First() Locator
	Nth(i int) Locator
	Count() (int, error)
	// WaitFor blocks until the element is attached to the DOM.
	WaitFor(timeout time.Duration) error
	IsVisible() (bool, error)
	Click(timeout time.Duration) error
	Fill(text string, timeout time.Duration) error
	InnerText(timeout time.Duration) (string, error)
	GetAttribute(name string, timeout time.Duration) (string, error)
}

// AbsoluteURL resolves href against base. Empty hrefs stay empty and hrefs
// that do not parse are returned unchanged.
func AbsoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
