package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/selector"
)

var (
	// ErrElementNotFound is returned when no visible element matched the target.
	ErrElementNotFound = errors.New("element not found")

	// ErrActionTimeout is returned when an element was found but the action
	// on it did not complete, whether it timed out or the driver refused it.
	ErrActionTimeout = errors.New("action timed out")
)

// WaitClick resolves target and clicks it, retrying the whole unit under policy.
func WaitClick(ctx context.Context, page browser.Page, policy RetryPolicy, target selector.Target, timeout time.Duration) error {
	return policy.Do(ctx, func() error {
		loc, err := resolveOne(page, target, timeout)
		if err != nil {
			return err
		}
		return actionErr("click", target, loc.Click(timeout))
	})
}

// WaitFill resolves target and fills it with text, retrying the whole unit under policy.
func WaitFill(ctx context.Context, page browser.Page, policy RetryPolicy, target selector.Target, text string, timeout time.Duration) error {
	return policy.Do(ctx, func() error {
		loc, err := resolveOne(page, target, timeout)
		if err != nil {
			return err
		}
		return actionErr("fill", target, loc.Fill(text, timeout))
	})
}

func resolveOne(page browser.Page, target selector.Target, timeout time.Duration) (browser.Locator, error) {
	m, ok, err := selector.Resolve(page, timeout, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, target)
	}
	return m.Locator, nil
}

func actionErr(op string, target selector.Target, err error) error {
	switch {
	case err == nil:
		return nil
	case browser.IsFault(err):
		return err
	default:
		return fmt.Errorf("%w: %s %s: %w", ErrActionTimeout, op, target, err)
	}
}
