package uiaction

import (
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Action
	}{
		{
			name: "no actions",
			text: "Returns are accepted within 30 days of purchase.",
			want: nil,
		},
		{
			name: "navigate with page suffix",
			text: "Sure, I'll take you there. Navigate to the settings page.",
			want: []Action{{Action: ActionNavigate, Target: "settings"}},
		},
		{
			name: "go to variant",
			text: "Go to checkout.",
			want: []Action{{Action: ActionNavigate, Target: "checkout"}},
		},
		{
			name: "click with button suffix",
			text: "Click on the submit button.",
			want: []Action{{Action: ActionClick, Target: "submit"}},
		},
		{
			name: "type carries text parameter",
			text: `Type "John Smith" into the name field.`,
			want: []Action{{Action: ActionType, Target: "name", Parameters: map[string]string{"text": "John Smith"}}},
		},
		{
			name: "focus",
			text: "Focus on the search input.",
			want: []Action{{Action: ActionFocus, Target: "search"}},
		},
		{
			name: "scroll direction",
			text: "Scroll down.",
			want: []Action{{Action: ActionScroll, Target: "down"}},
		},
		{
			name: "scroll to section",
			text: "Scroll to the order summary.",
			want: []Action{{Action: ActionScroll, Target: "order summary"}},
		},
		{
			name: "clear form",
			text: "Clear the shipping address form.",
			want: []Action{{Action: ActionClear, Target: "shipping address"}},
		},
		{
			name: "multiple actions in order",
			text: "Navigate to the checkout page. Then click the pay now button.",
			want: []Action{
				{Action: ActionNavigate, Target: "checkout"},
				{Action: ActionClick, Target: "pay now"},
			},
		},
		{
			name: "action keyword mid-sentence does not fire",
			text: "You can always click around the catalog if you like browsing.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("extracted %d actions, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Action != tt.want[i].Action {
					t.Errorf("action[%d] = %s, want %s", i, got[i].Action, tt.want[i].Action)
				}
				if got[i].Target != tt.want[i].Target {
					t.Errorf("target[%d] = %q, want %q", i, got[i].Target, tt.want[i].Target)
				}
				if want := tt.want[i].Parameters; want != nil {
					for k, v := range want {
						if got[i].Parameters[k] != v {
							t.Errorf("parameters[%d][%s] = %q, want %q", i, k, got[i].Parameters[k], v)
						}
					}
				}
			}
		})
	}
}
