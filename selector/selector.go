// Package selector resolves a logical UI target against the live page by
// trying an ordered list of locating strategies.
package selector

import (
	"fmt"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
)

// Target describes one way of locating an element: by ARIA role and optional
// accessible name, by visible text, or by CSS/playwright selector.
type Target struct {
	Selector string
	Role     string
	Name     string
	Text     string
}

// CSS targets elements matching a selector.
func CSS(selector string) Target {
	return Target{Selector: selector}
}

// Role targets elements by ARIA role and accessible name.
func Role(role, name string) Target {
	return Target{Role: role, Name: name}
}

// Text targets elements by their visible text.
func Text(text string) Target {
	return Target{Text: text}
}

// Locate builds a lazy locator for t. Role wins over text, text over selector.
func (t Target) Locate(page browser.Page) browser.Locator {
	switch {
	case t.Role != "":
		return page.GetByRole(t.Role, t.Name)
	case t.Text != "":
		return page.GetByText(t.Text)
	default:
		return page.Locator(t.Selector)
	}
}

// IsZero reports whether t names no element at all.
func (t Target) IsZero() bool {
	return t.Selector == "" && t.Role == "" && t.Text == ""
}

func (t Target) String() string {
	switch {
	case t.Role != "" && t.Name != "":
		return fmt.Sprintf("role=%s[name=%q]", t.Role, t.Name)
	case t.Role != "":
		return "role=" + t.Role
	case t.Text != "":
		return fmt.Sprintf("text=%q", t.Text)
	default:
		return t.Selector
	}
}

// Match is the outcome of a successful resolution.
type Match struct {
	Target  Target
	Locator browser.Locator
	// Index is the position of Target in the candidate list.
	Index int
}

// Resolve tries each target in order and returns the first whose first
// element attaches within wait and is visible. A miss is reported through
// the boolean; only driver faults are returned as errors.
func Resolve(page browser.Page, wait time.Duration, targets ...Target) (Match, bool, error) {
	for i, t := range targets {
		if t.IsZero() {
			continue
		}
		loc := t.Locate(page).First()
		if err := loc.WaitFor(wait); err != nil {
			if browser.IsFault(err) {
				return Match{}, false, err
			}
			continue
		}
		visible, err := loc.IsVisible()
		if err != nil {
			if browser.IsFault(err) {
				return Match{}, false, err
			}
			continue
		}
		if visible {
			return Match{Target: t, Locator: loc, Index: i}, true, nil
		}
	}
	return Match{}, false, nil
}
