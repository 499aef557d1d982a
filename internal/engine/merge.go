package engine

import (
	"github.com/roach88/tasksync/internal/checklist"
)

// Matcher pairs incoming items with existing ones. The result has one
// slot per incoming item holding the index of its existing partner, or -1.
// No existing index may appear twice.
type Matcher interface {
	Match(existing, incoming []checklist.ChecklistItem, stableIDs bool) []int
}

// KeyMatcher pairs by id when the incoming parse has stable ids, then
// pairs what is left by normalized title. This is the default. Ids are
// only compared between items whose IDSource agrees: an entry's items may
// carry ids from another source type's last reconcile, and those numbers
// mean nothing to this one.
//
// Titles are compared after NFC normalization, Unicode case folding and
// whitespace collapsing. Two items with the same normalized title pair in
// order, so a reorder of identical titles can swap them; they are
// indistinguishable anyway.
type KeyMatcher struct{}

func (KeyMatcher) Match(existing, incoming []checklist.ChecklistItem, stableIDs bool) []int {
	pairs := newPairs(len(incoming))
	used := make([]bool, len(existing))

	if stableIDs {
		byID := make(map[idKey]int, len(existing))
		for i, it := range existing {
			k := idKey{it.IDSource, it.ID}
			if _, dup := byID[k]; !dup {
				byID[k] = i
			}
		}
		for j, it := range incoming {
			if i, ok := byID[idKey{it.IDSource, it.ID}]; ok && !used[i] {
				pairs[j] = i
				used[i] = true
			}
		}
	}

	matchTitles(existing, incoming, pairs, used)
	return pairs
}

type idKey struct {
	source checklist.SourceType
	id     string
}

// TitleMatcher pairs by normalized title only, ignoring ids.
type TitleMatcher struct{}

func (TitleMatcher) Match(existing, incoming []checklist.ChecklistItem, _ bool) []int {
	pairs := newPairs(len(incoming))
	matchTitles(existing, incoming, pairs, make([]bool, len(existing)))
	return pairs
}

func newPairs(n int) []int {
	pairs := make([]int, n)
	for i := range pairs {
		pairs[i] = -1
	}
	return pairs
}

// matchTitles fills the unpaired slots of pairs from unused existing items
// with the same title key, first come first served.
func matchTitles(existing, incoming []checklist.ChecklistItem, pairs []int, used []bool) {
	byTitle := make(map[string][]int)
	for i, it := range existing {
		if used[i] {
			continue
		}
		k := checklist.TitleKey(it.Title)
		byTitle[k] = append(byTitle[k], i)
	}
	for j, it := range incoming {
		if pairs[j] >= 0 {
			continue
		}
		k := checklist.TitleKey(it.Title)
		queue := byTitle[k]
		if len(queue) == 0 {
			continue
		}
		pairs[j] = queue[0]
		used[queue[0]] = true
		byTitle[k] = queue[1:]
	}
}

// MergeOutcome is the merged list plus its change counts.
type MergeOutcome struct {
	Items         []checklist.ChecklistItem
	Added         int
	Removed       int
	StatusChanges int
}

// Merge combines existing and incoming using pairs from a Matcher.
//
// The merged list follows incoming order. A paired item takes id, title,
// priority and notes from incoming. When the statuses differ, the side
// with the later updated time supplies status and updated; a tie goes to
// incoming. When they agree, the existing updated time is kept. Unpaired
// incoming items are added; unpaired existing items are dropped.
func Merge(existing, incoming []checklist.ChecklistItem, pairs []int) MergeOutcome {
	out := MergeOutcome{Items: make([]checklist.ChecklistItem, 0, len(incoming))}
	matched := 0

	for j, in := range incoming {
		i := -1
		if j < len(pairs) {
			i = pairs[j]
		}
		if i < 0 || i >= len(existing) {
			out.Items = append(out.Items, in)
			out.Added++
			continue
		}
		matched++
		out.Items = append(out.Items, mergeItem(existing[i], in, &out.StatusChanges))
	}

	out.Removed = len(existing) - matched
	return out
}

func mergeItem(ex, in checklist.ChecklistItem, statusChanges *int) checklist.ChecklistItem {
	merged := in
	if ex.Status == in.Status {
		merged.Updated = ex.Updated
		return merged
	}
	*statusChanges++
	if ex.Updated.After(in.Updated) {
		merged.Status = ex.Status
		merged.Updated = ex.Updated
	}
	return merged
}
