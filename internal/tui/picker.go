package tui

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// PickerItem is one selectable row. Search defaults to Label.
type PickerItem struct {
	ID     string
	Label  string
	Meta   string
	Search string
}

type PickerAction int

const (
	PickerActionNone PickerAction = iota
	PickerActionMoved
	PickerActionSelected
)

type PickerResult struct {
	Action PickerAction
	Item   PickerItem
}

// Picker is a type-to-filter list used by the submission screen.
type Picker struct {
	items    []PickerItem
	filtered []PickerItem
	query    string
	cursor   int
}

func NewPicker(items []PickerItem) *Picker {
	p := &Picker{}
	p.SetItems(items)
	return p
}

func (p *Picker) Query() string { return p.query }

func (p *Picker) Cursor() int { return p.cursor }

func (p *Picker) Items() []PickerItem {
	return append([]PickerItem(nil), p.filtered...)
}

func (p *Picker) SetItems(items []PickerItem) {
	p.items = append([]PickerItem(nil), items...)
	p.rebuildFiltered()
}

func (p *Picker) SetQuery(q string) {
	p.query = q
	p.rebuildFiltered()
}

// Focus moves the cursor to the item with id, if it is visible.
func (p *Picker) Focus(id string) {
	for i, item := range p.filtered {
		if item.ID == id {
			p.cursor = i
			return
		}
	}
}

func (p *Picker) CurrentItem() (PickerItem, bool) {
	if len(p.filtered) == 0 {
		return PickerItem{}, false
	}
	return p.filtered[min(max(p.cursor, 0), len(p.filtered)-1)], true
}

// HandleKey applies a key name as produced by tea.KeyMsg.String.
func (p *Picker) HandleKey(keyName string) PickerResult {
	switch keyName {
	case "up", "ctrl+p":
		if p.cursor > 0 {
			p.cursor--
			return PickerResult{Action: PickerActionMoved}
		}
	case "down", "ctrl+n":
		if p.cursor < len(p.filtered)-1 {
			p.cursor++
			return PickerResult{Action: PickerActionMoved}
		}
	case "enter":
		if item, ok := p.CurrentItem(); ok {
			return PickerResult{Action: PickerActionSelected, Item: item}
		}
	case "backspace":
		if len(p.query) > 0 {
			p.SetQuery(p.query[:len(p.query)-1])
		}
	default:
		if isPrintableASCIIKey(keyName) {
			p.SetQuery(p.query + keyName)
		}
	}
	return PickerResult{Action: PickerActionNone}
}

// Suggestion returns the label closest to the query by edit distance when
// the query filters everything out. It is empty when something matches or
// nothing is close.
func (p *Picker) Suggestion() string {
	q := strings.ToLower(strings.TrimSpace(p.query))
	if q == "" || len(p.filtered) > 0 {
		return ""
	}
	best, bestDist := "", len(q)/2+1
	for _, item := range p.items {
		d := levenshtein.ComputeDistance(q, strings.ToLower(item.Label))
		if d < bestDist {
			best, bestDist = item.Label, d
		}
	}
	return best
}

type scoredPickerItem struct {
	item  PickerItem
	score int
	index int
}

func (p *Picker) rebuildFiltered() {
	q := strings.TrimSpace(p.query)
	scored := make([]scoredPickerItem, 0, len(p.items))
	for idx, item := range p.items {
		search := strings.TrimSpace(item.Search)
		if search == "" {
			search = item.Label
		}
		if matched, score := fuzzyMatchScore(search, q); matched {
			scored = append(scored, scoredPickerItem{item: item, score: score, index: idx})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].index < scored[j].index
	})

	p.filtered = make([]PickerItem, 0, len(scored))
	for _, row := range scored {
		p.filtered = append(p.filtered, row.item)
	}
	p.cursor = min(max(p.cursor, 0), max(len(p.filtered)-1, 0))
}

// fuzzyMatchScore matches query as a subsequence of label. Prefix and
// contiguous runs score higher; an exact match scores highest.
func fuzzyMatchScore(label, query string) (bool, int) {
	if query == "" {
		return true, 0
	}
	labelLower := strings.ToLower(label)
	queryLower := strings.ToLower(query)

	score, from, prev := len(queryLower), 0, -2
	for i := 0; i < len(queryLower); i++ {
		j := strings.IndexByte(labelLower[from:], queryLower[i])
		if j < 0 {
			return false, 0
		}
		pos := from + j
		switch {
		case pos == 0:
			score += 10
		case pos == prev+1:
			score += 3
		}
		prev, from = pos, pos+1
	}
	if strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(query)) {
		score += 20
	}
	return true, score
}

func isPrintableASCIIKey(keyName string) bool {
	return len(keyName) == 1 && keyName[0] >= 32 && keyName[0] < 127
}
