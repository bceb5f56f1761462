// Package testutil provides a scripted in-memory browser.Page for unit tests.
package testutil

import (
	"fmt"
	"regexp"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
)

// Element is one scripted DOM node.
type Element struct {
	Text   string
	Href   string
	Attrs  map[string]string
	Hidden bool

	ClickErr error
	FillErr  error
	// OnClick runs after a successful click, e.g. to swap the DOM.
	OnClick func(p *FakePage)
}

// FakePage is a browser.Page backed by a map of query keys to elements.
// Queries are looked up when an action runs, so DOM changes made by hooks
// are visible to locators created earlier. It is not safe for concurrent use.
type FakePage struct {
	url string
	dom map[string][]*Element

	// OnGoto is consulted before a navigation is committed; a non-nil error
	// fails the navigation and leaves the URL unchanged.
	OnGoto        func(p *FakePage, url string) error
	OnPress       func(p *FakePage, key string) error
	DOMReadyErr   error
	ScreenshotErr error
	Closed        bool

	Visited     []string
	Pressed     []string
	Clicked     []string
	Filled      map[string]string
	Screenshots int
}

// NewFakePage returns an empty page sitting at url.
func NewFakePage(url string) *FakePage {
	return &FakePage{
		url:    url,
		dom:    make(map[string][]*Element),
		Filled: make(map[string]string),
	}
}

// CSSKey, RoleKey and TextKey build the lookup keys used by Set.
func CSSKey(selector string) string { return "css:" + selector }

func RoleKey(role, name string) string { return "role:" + role + "|" + name }

func TextKey(text string) string { return "text:" + text }

// Set replaces the elements matched by key.
func (p *FakePage) Set(key string, els ...*Element) *FakePage {
	if len(els) == 0 {
		delete(p.dom, key)
		return p
	}
	p.dom[key] = els
	return p
}

// SetCSS replaces the elements matched by a selector.
func (p *FakePage) SetCSS(selector string, els ...*Element) *FakePage {
	return p.Set(CSSKey(selector), els...)
}

// SetRole replaces the elements matched by role and name.
func (p *FakePage) SetRole(role, name string, els ...*Element) *FakePage {
	return p.Set(RoleKey(role, name), els...)
}

// SetText replaces the elements matched by visible text.
func (p *FakePage) SetText(text string, els ...*Element) *FakePage {
	return p.Set(TextKey(text), els...)
}

// SetURL moves the page without recording a visit, as a form submission would.
func (p *FakePage) SetURL(url string) {
	p.url = url
}

// Reset empties the DOM.
func (p *FakePage) Reset() {
	p.dom = make(map[string][]*Element)
}

func (p *FakePage) closedErr(op string) error {
	return fmt.Errorf("%w: %s", browser.ErrClosed, op)
}

func timeoutErr(what string) error {
	return fmt.Errorf("%w: waiting for %s", browser.ErrTimeout, what)
}

func (p *FakePage) Goto(url string, timeout time.Duration) error {
	if p.Closed {
		return p.closedErr("goto")
	}
	p.Visited = append(p.Visited, url)
	if p.OnGoto != nil {
		if err := p.OnGoto(p, url); err != nil {
			return err
		}
	}
	p.url = url
	return nil
}

func (p *FakePage) Locator(selector string) browser.Locator {
	return &fakeLocator{page: p, key: CSSKey(selector), index: -1}
}

func (p *FakePage) GetByRole(role, name string) browser.Locator {
	return &fakeLocator{page: p, key: RoleKey(role, name), index: -1}
}

func (p *FakePage) GetByText(text string) browser.Locator {
	return &fakeLocator{page: p, key: TextKey(text), index: -1}
}

func (p *FakePage) WaitForURL(pattern *regexp.Regexp, timeout time.Duration) error {
	if p.Closed {
		return p.closedErr("wait for url")
	}
	if pattern.MatchString(p.url) {
		return nil
	}
	return timeoutErr("url " + pattern.String())
}

func (p *FakePage) WaitForDOMReady(timeout time.Duration) error {
	if p.Closed {
		return p.closedErr("wait for load state")
	}
	return p.DOMReadyErr
}

func (p *FakePage) Press(key string) error {
	if p.Closed {
		return p.closedErr("press")
	}
	p.Pressed = append(p.Pressed, key)
	if p.OnPress != nil {
		return p.OnPress(p, key)
	}
	return nil
}

func (p *FakePage) Screenshot() ([]byte, error) {
	if p.Closed {
		return nil, p.closedErr("screenshot")
	}
	p.Screenshots++
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return []byte("\x89PNG fake"), nil
}

func (p *FakePage) URL() string {
	return p.url
}

type fakeLocator struct {
	page  *FakePage
	key   string
	index int
}

func (l *fakeLocator) First() browser.Locator {
	return &fakeLocator{page: l.page, key: l.key, index: 0}
}

func (l *fakeLocator) Nth(i int) browser.Locator {
	return &fakeLocator{page: l.page, key: l.key, index: i}
}

func (l *fakeLocator) element() *Element {
	els := l.page.dom[l.key]
	idx := l.index
	if idx < 0 {
		idx = 0
	}
	if idx >= len(els) {
		return nil
	}
	return els[idx]
}

func (l *fakeLocator) Count() (int, error) {
	if l.page.Closed {
		return 0, l.page.closedErr("count")
	}
	if l.index >= 0 {
		if l.element() == nil {
			return 0, nil
		}
		return 1, nil
	}
	return len(l.page.dom[l.key]), nil
}

func (l *fakeLocator) WaitFor(timeout time.Duration) error {
	if l.page.Closed {
		return l.page.closedErr("wait for")
	}
	if l.element() == nil {
		return timeoutErr(l.key)
	}
	return nil
}

func (l *fakeLocator) IsVisible() (bool, error) {
	if l.page.Closed {
		return false, l.page.closedErr("is visible")
	}
	el := l.element()
	return el != nil && !el.Hidden, nil
}

func (l *fakeLocator) Click(timeout time.Duration) error {
	if l.page.Closed {
		return l.page.closedErr("click")
	}
	el := l.element()
	if el == nil {
		return timeoutErr(l.key)
	}
	if el.ClickErr != nil {
		return el.ClickErr
	}
	l.page.Clicked = append(l.page.Clicked, l.key)
	if el.OnClick != nil {
		el.OnClick(l.page)
	}
	return nil
}

func (l *fakeLocator) Fill(text string, timeout time.Duration) error {
	if l.page.Closed {
		return l.page.closedErr("fill")
	}
	el := l.element()
	if el == nil {
		return timeoutErr(l.key)
	}
	if el.FillErr != nil {
		return el.FillErr
	}
	l.page.Filled[l.key] = text
	return nil
}

func (l *fakeLocator) InnerText(timeout time.Duration) (string, error) {
	if l.page.Closed {
		return "", l.page.closedErr("inner text")
	}
	el := l.element()
	if el == nil {
		return "", timeoutErr(l.key)
	}
	return el.Text, nil
}

func (l *fakeLocator) GetAttribute(name string, timeout time.Duration) (string, error) {
	if l.page.Closed {
		return "", l.page.closedErr("get attribute")
	}
	el := l.element()
	if el == nil {
		return "", timeoutErr(l.key)
	}
	if name == "href" {
		return el.Href, nil
	}
	return el.Attrs[name], nil
}

var _ browser.Page = (*FakePage)(nil)
