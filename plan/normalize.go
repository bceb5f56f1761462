package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	jsonSpan    = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)
)

// ExtractJSON pulls the JSON value out of free-form model output. A fenced
// code block is preferred; failing a direct parse, the widest brace or
// bracket span is tried.
func ExtractJSON(text string) (gjson.Result, error) {
	body := strings.TrimSpace(text)
	if m := fencedBlock.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	if body != "" && gjson.Valid(body) {
		return gjson.Parse(body), nil
	}
	if span := jsonSpan.FindString(body); span != "" && gjson.Valid(span) {
		return gjson.Parse(span), nil
	}
	return gjson.Result{}, fmt.Errorf("%w: %q", ErrPlanParse, preview(text, 80))
}

// Normalize converts a parsed value into a plan. Objects already tagged with
// a known action are kept as they are. Otherwise the first key naming an
// action becomes the tag, its value the primary argument, and the remaining
// keys are carried over. Anything else is skipped.
func Normalize(value gjson.Result) (Plan, error) {
	steps := value
	if value.IsObject() {
		steps = value.Get("steps")
	}
	if !steps.IsArray() {
		return nil, ErrPlanShape
	}

	var (
		out Plan
		err error
	)
	steps.ForEach(func(_, el gjson.Result) bool {
		var (
			st Step
			ok bool
		)
		st, ok, err = normalizeStep(el)
		if ok {
			out = append(out, st)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, ErrEmptyPlan
	}
	return out, nil
}

func normalizeStep(el gjson.Result) (Step, bool, error) {
	if !el.IsObject() {
		return nil, false, nil
	}
	obj, ok := el.Value().(map[string]any)
	if !ok {
		return nil, false, nil
	}

	if tag, ok := obj["action"].(string); ok {
		if action, ok := ParseAction(tag); ok {
			st, err := fromObject(action, obj)
			return st, err == nil, err
		}
	}

	var (
		step  Step
		found bool
		err   error
	)
	// ForEach walks keys in document order, which map iteration would not.
	el.ForEach(func(key, val gjson.Result) bool {
		action, ok := ParseAction(key.String())
		if !ok {
			return true
		}
		canonical := map[string]any{
			"action":              string(action),
			action.primaryField(): val.Value(),
		}
		for k, v := range obj {
			if k == key.String() {
				continue
			}
			if _, taken := canonical[k]; !taken {
				canonical[k] = v
			}
		}
		step, err = fromObject(action, canonical)
		found = err == nil
		return false
	})
	return step, found, err
}

// ParsePlan extracts and normalizes a plan from raw model output.
func ParsePlan(text string) (Plan, error) {
	value, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	return Normalize(value)
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
