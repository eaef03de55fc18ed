package tui

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Scopes used by the key registry.
const (
	scopeList        = "screen:audits"
	scopeListFilter  = "screen:audits:filter"
	scopeDetail      = "screen:detail"
	scopeWizard      = "screen:submit"
	scopeWizardPick  = "screen:submit:pick"
	scopeWizardFinal = "screen:submit:confirm"
)

// KeyBinding maps keys to an action within some scopes. An empty Scopes
// list or "*" applies everywhere.
type KeyBinding struct {
	Keys        []string
	Action      string
	Description string
	Scopes      []string
}

// KeyRegistry resolves key presses to actions for the active scope.
type KeyRegistry struct {
	bindings []KeyBinding
}

func NewKeyRegistry(bindings []KeyBinding) *KeyRegistry {
	return &KeyRegistry{bindings: slices.Clone(bindings)}
}

func (r *KeyRegistry) BindingsForScope(scope string) []KeyBinding {
	out := make([]KeyBinding, 0, len(r.bindings))
	for _, b := range r.bindings {
		if b.Description != "" && scopeMatch(scope, b.Scopes) {
			out = append(out, b)
		}
	}
	return out
}

func (r *KeyRegistry) IsAction(msg tea.KeyMsg, action, scope string) bool {
	pressed := normalizeKey(msg.String())
	for _, b := range r.bindings {
		if b.Action != action || !scopeMatch(scope, b.Scopes) {
			continue
		}
		for _, k := range b.Keys {
			if normalizeKey(k) == pressed {
				return true
			}
		}
	}
	return false
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

func scopeMatch(scope string, scopes []string) bool {
	if len(scopes) == 0 {
		return true
	}
	for _, s := range scopes {
		if s == "*" || s == scope {
			return true
		}
	}
	return false
}

// DefaultKeyBindings is the stock key map.
func DefaultKeyBindings() []KeyBinding {
	browse := []string{scopeList, scopeDetail, scopeWizard, scopeWizardPick, scopeWizardFinal}
	return []KeyBinding{
		{Keys: []string{"ctrl+c"}, Action: "quit", Scopes: []string{"*"}},
		{Keys: []string{"q"}, Action: "quit", Description: "quit", Scopes: []string{scopeList, scopeDetail}},
		{Keys: []string{"esc"}, Action: "back", Description: "back", Scopes: browse},
		{Keys: []string{"/"}, Action: "focus-filter", Description: "filter", Scopes: []string{scopeList}},
		{Keys: []string{"esc", "enter"}, Action: "blur-filter", Description: "done", Scopes: []string{scopeListFilter}},
		{Keys: []string{"ctrl+u"}, Action: "clear-filter", Description: "clear", Scopes: []string{scopeListFilter}},
		{Keys: []string{"x"}, Action: "clear-filter", Description: "clear filter", Scopes: []string{scopeList}},
		{Keys: []string{"s"}, Action: "cycle-sort", Description: "sort", Scopes: []string{scopeList}},
		{Keys: []string{"o"}, Action: "toggle-order", Description: "order", Scopes: []string{scopeList}},
		{Keys: []string{"]", "pgdown"}, Action: "next-page", Description: "next page", Scopes: []string{scopeList}},
		{Keys: []string{"[", "pgup"}, Action: "prev-page", Description: "prev page", Scopes: []string{scopeList}},
		{Keys: []string{"enter"}, Action: "open", Description: "open", Scopes: []string{scopeList}},
		{Keys: []string{"a"}, Action: "new-audit", Description: "new audit", Scopes: []string{scopeList, scopeDetail}},
		{Keys: []string{"r"}, Action: "refresh", Description: "refresh", Scopes: []string{scopeList, scopeDetail}},
		{Keys: []string{"enter"}, Action: "select", Description: "select", Scopes: []string{scopeWizard, scopeWizardPick}},
		{Keys: []string{"tab"}, Action: "skip", Description: "entire strategy", Scopes: []string{scopeWizardPick}},
		{Keys: []string{"enter"}, Action: "submit", Description: "submit", Scopes: []string{scopeWizardFinal}},
	}
}
