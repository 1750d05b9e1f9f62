package uiaction

import (
	"regexp"
	"strings"
)

// Action is one UI command extracted from a response, delivered to the
// client over the UI-control channel.
type Action struct {
	Action     string            `json:"action"`
	Target     string            `json:"target"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Supported action keywords.
const (
	ActionNavigate = "navigate"
	ActionClick    = "click"
	ActionType     = "type"
	ActionFocus    = "focus"
	ActionScroll   = "scroll"
	ActionClear    = "clear"
)

// The grammar is matched clause by clause: the response text is split on
// sentence punctuation and each clause is tried against the anchored
// patterns below. First match wins per clause. Targets normalize to lower
// case; typed text keeps its original casing.
var clauseSplitter = regexp.MustCompile(`[.;!?\n]+`)

type rule struct {
	action string
	re     *regexp.Regexp
	build  func(match []string) Action
}

var rules = []rule{
	{
		action: ActionType,
		re:     regexp.MustCompile(`(?i)^(?:please |now |then )?type "(.+)" (?:in|into) (?:the )?(.+?)(?: field| box| input)?$`),
		build: func(m []string) Action {
			return Action{
				Action:     ActionType,
				Target:     strings.ToLower(m[2]),
				Parameters: map[string]string{"text": m[1]},
			}
		},
	},
	{
		action: ActionNavigate,
		re:     regexp.MustCompile(`(?i)^(?:please |now |then )?(?:navigate|go) to (?:the )?(.+?)(?: page| screen| section| tab)?$`),
		build: func(m []string) Action {
			return Action{Action: ActionNavigate, Target: strings.ToLower(m[1])}
		},
	},
	{
		action: ActionClick,
		re:     regexp.MustCompile(`(?i)^(?:please |now |then )?click(?: on)? (?:the )?(.+?)(?: button| link| icon)?$`),
		build: func(m []string) Action {
			return Action{Action: ActionClick, Target: strings.ToLower(m[1])}
		},
	},
	{
		action: ActionFocus,
		re:     regexp.MustCompile(`(?i)^(?:please |now |then )?focus(?: on)? (?:the )?(.+?)(?: field| box| input)?$`),
		build: func(m []string) Action {
			return Action{Action: ActionFocus, Target: strings.ToLower(m[1])}
		},
	},
	{
		action: ActionScroll,
		re:     regexp.MustCompile(`(?i)^(?:please |now |then )?scroll (?:to (?:the )?)?(.+)$`),
		build: func(m []string) Action {
			return Action{Action: ActionScroll, Target: strings.ToLower(m[1])}
		},
	},
	{
		action: ActionClear,
		re:     regexp.MustCompile(`(?i)^(?:please |now |then )?clear (?:the )?(.+?)(?: field| form| box| input)?$`),
		build: func(m []string) Action {
			return Action{Action: ActionClear, Target: strings.ToLower(m[1])}
		},
	},
}

// Extract scans response text for the fixed action-keyword grammar and
// returns the UI actions in the order they appear. Text without any action
// keywords yields an empty slice.
func Extract(text string) []Action {
	var actions []Action

	for _, clause := range clauseSplitter.Split(text, -1) {
		clause = strings.TrimSpace(strings.Trim(strings.TrimSpace(clause), ","))
		if clause == "" {
			continue
		}

		for _, r := range rules {
			if m := r.re.FindStringSubmatch(clause); m != nil {
				actions = append(actions, r.build(m))
				break
			}
		}
	}

	return actions
}
