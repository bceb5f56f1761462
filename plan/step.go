// Package plan turns loosely structured model output into a validated
// sequence of browser steps and replays them against a page.
package plan

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrPlanParse is returned when no JSON value can be found in the model output.
	ErrPlanParse = errors.New("plan is not valid json")

	// ErrPlanShape is returned when the JSON value is neither a list of steps
	// nor an object holding one under "steps".
	ErrPlanShape = errors.New("plan is not a list of steps")

	// ErrEmptyPlan is returned when no usable step survives normalization.
	ErrEmptyPlan = errors.New("no valid steps after normalization")

	// ErrInvalidStep is returned when a step lacks the arguments its action needs.
	ErrInvalidStep = errors.New("invalid step")

	// ErrUnsupportedAction is returned for an action no step type implements.
	ErrUnsupportedAction = errors.New("unsupported action")
)

// Action is the tag carried by every step.
type Action string

const (
	ActionNavigate    Action = "navigate"
	ActionClick       Action = "click"
	ActionType        Action = "type"
	ActionWait        Action = "wait"
	ActionExtractText Action = "extract_text"
)

// Actions lists every recognised action in prompt order.
var Actions = []Action{ActionNavigate, ActionClick, ActionType, ActionWait, ActionExtractText}

// ParseAction reports whether s names a recognised action.
func ParseAction(s string) (Action, bool) {
	for _, a := range Actions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// primaryField is the argument a shorthand key's value is assigned to.
func (a Action) primaryField() string {
	if a == ActionNavigate {
		return "url"
	}
	return "selector"
}

// Step is one normalized action. The set of implementations is closed.
type Step interface {
	Action() Action
	// Raw returns the canonical object the step was built from.
	Raw() map[string]any
	isStep()
}

// Plan is an ordered list of steps, executed strictly in sequence.
type Plan []Step

// Navigate loads URL.
type Navigate struct {
	URL string
	raw map[string]any
}

// Click clicks the first element found by Selector, else Text, else Role and Name.
type Click struct {
	Selector string
	Text     string
	Role     string
	Name     string
	raw      map[string]any
}

// Type fills the element matched by Selector with Text.
type Type struct {
	Selector string
	Text     string
	raw      map[string]any
}

// hasText reports whether the step carries a text argument. A decoded step
// may type the empty string; one built in code needs non-empty Text.
func (s Type) hasText() bool {
	if s.raw == nil {
		return s.Text != ""
	}
	v, ok := s.raw["text"]
	return ok && v != nil
}

// Wait blocks until Selector is attached.
type Wait struct {
	Selector string
	raw      map[string]any
}

// ExtractText stores the text and link of Selector under Key.
type ExtractText struct {
	Selector string
	Key      string
	raw      map[string]any
}

// DefaultResultKey is used when an extract step names no key.
const DefaultResultKey = "value"

// ResultKey returns Key, or DefaultResultKey when it is empty.
func (s ExtractText) ResultKey() string {
	if s.Key == "" {
		return DefaultResultKey
	}
	return s.Key
}

func (Navigate) Action() Action    { return ActionNavigate }
func (Click) Action() Action       { return ActionClick }
func (Type) Action() Action        { return ActionType }
func (Wait) Action() Action        { return ActionWait }
func (ExtractText) Action() Action { return ActionExtractText }

func (Navigate) isStep()    {}
func (Click) isStep()       {}
func (Type) isStep()        {}
func (Wait) isStep()        {}
func (ExtractText) isStep() {}

func (s Navigate) Raw() map[string]any {
	return rawOr(s.raw, ActionNavigate, "url", s.URL)
}

func (s Click) Raw() map[string]any {
	return rawOr(s.raw, ActionClick, "selector", s.Selector, "text", s.Text, "role", s.Role, "name", s.Name)
}

func (s Type) Raw() map[string]any {
	return rawOr(s.raw, ActionType, "selector", s.Selector, "text", s.Text)
}

func (s Wait) Raw() map[string]any {
	return rawOr(s.raw, ActionWait, "selector", s.Selector)
}

func (s ExtractText) Raw() map[string]any {
	return rawOr(s.raw, ActionExtractText, "selector", s.Selector, "key", s.Key)
}

// rawOr copies raw, or builds a canonical object from non-empty key/value pairs.
func rawOr(raw map[string]any, action Action, kv ...string) map[string]any {
	out := make(map[string]any, len(raw)+1)
	if raw != nil {
		for k, v := range raw {
			out[k] = v
		}
		return out
	}
	out["action"] = string(action)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			out[kv[i]] = kv[i+1]
		}
	}
	return out
}

// fromObject builds the typed step for a canonical object.
func fromObject(action Action, obj map[string]any) (Step, error) {
	switch action {
	case ActionNavigate:
		return Navigate{URL: str(obj, "url"), raw: obj}, nil
	case ActionClick:
		return Click{
			Selector: str(obj, "selector"),
			Text:     str(obj, "text"),
			Role:     str(obj, "role"),
			Name:     str(obj, "name"),
			raw:      obj,
		}, nil
	case ActionType:
		return Type{Selector: str(obj, "selector"), Text: str(obj, "text"), raw: obj}, nil
	case ActionWait:
		return Wait{Selector: str(obj, "selector"), raw: obj}, nil
	case ActionExtractText:
		return ExtractText{Selector: str(obj, "selector"), Key: str(obj, "key"), raw: obj}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, action)
	}
}

// str reads a scalar argument. Objects and arrays read as empty.
func str(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
