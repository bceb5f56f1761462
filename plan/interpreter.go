package plan

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/selector"
)

// Record is the text and absolute link read by an extract step.
type Record struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ResultMap collects records by extraction key for one plan run.
type ResultMap map[string]Record

// StepError reports which step of a plan failed.
type StepError struct {
	Index  int
	Action Action
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Action, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Timeouts bounds each kind of step.
type Timeouts struct {
	Navigate time.Duration
	Action   time.Duration
	Wait     time.Duration
}

// DefaultTimeouts returns the step bounds used against live sites.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigate: 20 * time.Second,
		Action:   8 * time.Second,
		Wait:     12 * time.Second,
	}
}

// Interpreter executes steps against a single page.
type Interpreter struct {
	page     browser.Page
	base     *url.URL
	timeouts Timeouts
	logger   logger.Logger
}

// NewInterpreter creates an interpreter that resolves links against base.
func NewInterpreter(page browser.Page, base *url.URL, timeouts Timeouts, log logger.Logger) *Interpreter {
	return &Interpreter{
		page:     page,
		base:     base,
		timeouts: timeouts,
		logger:   log,
	}
}

// Run executes every step of p in order and stops at the first failure. On
// failure no results are returned.
func (in *Interpreter) Run(ctx context.Context, p Plan) (ResultMap, error) {
	results := make(ResultMap)
	for i, st := range p {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in.logger.Debug(ctx, "executing step", map[string]interface{}{
			"index":  i,
			"action": string(st.Action()),
		})
		if err := in.Execute(ctx, st, results); err != nil {
			return nil, &StepError{Index: i, Action: st.Action(), Err: err}
		}
	}
	return results, nil
}

// Execute runs one step, writing any extracted record into results.
func (in *Interpreter) Execute(ctx context.Context, st Step, results ResultMap) error {
	switch s := st.(type) {
	case Navigate:
		return in.navigate(s)
	case Click:
		return in.click(s)
	case Type:
		return in.typeText(s)
	case Wait:
		return in.wait(s)
	case ExtractText:
		return in.extract(s, results)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedAction, st)
	}
}

func (in *Interpreter) navigate(s Navigate) error {
	if s.URL == "" {
		return fmt.Errorf("%w: navigate requires url", ErrInvalidStep)
	}
	target := browser.AbsoluteURL(in.base, s.URL)
	if err := in.page.Goto(target, in.timeouts.Navigate); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	return nil
}

func (in *Interpreter) click(s Click) error {
	var target selector.Target
	switch {
	case s.Selector != "":
		target = selector.CSS(s.Selector)
	case s.Text != "":
		target = selector.Text(s.Text)
	case s.Role != "":
		target = selector.Role(s.Role, s.Name)
	default:
		return fmt.Errorf("%w: click requires selector, text or role", ErrInvalidStep)
	}

	loc := target.Locate(in.page).First()
	if err := loc.WaitFor(in.timeouts.Action); err != nil {
		return fmt.Errorf("click %s: %w", target, err)
	}
	if err := loc.Click(in.timeouts.Action); err != nil {
		return fmt.Errorf("click %s: %w", target, err)
	}
	return nil
}

func (in *Interpreter) typeText(s Type) error {
	if s.Selector == "" || !s.hasText() {
		return fmt.Errorf("%w: type requires selector and text", ErrInvalidStep)
	}

	loc := in.page.Locator(s.Selector).First()
	if err := loc.WaitFor(in.timeouts.Action); err != nil {
		return fmt.Errorf("type into %s: %w", s.Selector, err)
	}
	if err := loc.Fill(s.Text, in.timeouts.Action); err != nil {
		return fmt.Errorf("type into %s: %w", s.Selector, err)
	}
	if strings.Contains(strings.ToLower(s.Selector), "search") {
		if err := in.page.Press("Enter"); err != nil {
			return fmt.Errorf("submit %s: %w", s.Selector, err)
		}
	}
	return nil
}

func (in *Interpreter) wait(s Wait) error {
	if s.Selector == "" {
		return fmt.Errorf("%w: wait requires selector", ErrInvalidStep)
	}
	if err := in.page.Locator(s.Selector).First().WaitFor(in.timeouts.Wait); err != nil {
		return fmt.Errorf("wait for %s: %w", s.Selector, err)
	}
	return nil
}

func (in *Interpreter) extract(s ExtractText, results ResultMap) error {
	if s.Selector == "" {
		return fmt.Errorf("%w: extract_text requires selector", ErrInvalidStep)
	}

	loc := in.page.Locator(s.Selector).First()
	if err := loc.WaitFor(in.timeouts.Wait); err != nil {
		return fmt.Errorf("extract %s: %w", s.Selector, err)
	}
	text, err := loc.InnerText(in.timeouts.Wait)
	if err != nil {
		return fmt.Errorf("extract %s: %w", s.Selector, err)
	}
	href, err := loc.GetAttribute("href", in.timeouts.Wait)
	if err != nil {
		return fmt.Errorf("extract %s: %w", s.Selector, err)
	}

	results[s.ResultKey()] = Record{
		Title: strings.TrimSpace(text),
		URL:   browser.AbsoluteURL(in.base, href),
	}
	return nil
}
