package mutation

import (
	"fmt"
	"time"
)

// diffEntry is one item of an update's diff list (spec §4.8 step 4):
// {field, old, new, mode, delta?}.
type diffEntry struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
	Mode  string `json:"mode"` // "replace" | "append"
	Delta string `json:"delta,omitempty"`
}

// buildDiff compares normalized's proposed values against old's
// current text rendering, producing one diffEntry per changed field.
// Fields named in appendFields concatenate "[YYYY-MM-DD] new_text"
// onto the old value instead of replacing it, recording the
// concatenated delta and mode "append"; the returned field value for
// those entries is the full concatenated text so the caller writes the
// combined value, not just the appended delta.
func buildDiff(old map[string]string, normalized map[string]any, appendFields []string, now time.Time) ([]diffEntry, map[string]any) {
	appendSet := make(map[string]bool, len(appendFields))
	for _, f := range appendFields {
		appendSet[f] = true
	}

	var diffs []diffEntry
	resolved := make(map[string]any, len(normalized))

	for field, newValue := range normalized {
		newText := fmt.Sprintf("%v", newValue)
		oldText := old[field]

		if appendSet[field] {
			delta := fmt.Sprintf("[%s] %s", now.Format("2006-01-02"), newText)
			combined := delta
			if oldText != "" {
				combined = oldText + "\n" + delta
			}
			diffs = append(diffs, diffEntry{Field: field, Old: oldText, New: combined, Mode: "append", Delta: delta})
			resolved[field] = combined
			continue
		}

		if oldText == newText {
			continue
		}
		diffs = append(diffs, diffEntry{Field: field, Old: oldText, New: newText, Mode: "replace"})
		resolved[field] = newValue
	}

	return diffs, resolved
}

// diffToData converts a diff list into the plain-map shape the
// pending_action payload and the confirmation card both consume.
func diffToData(diffs []diffEntry) []map[string]any {
	out := make([]map[string]any, len(diffs))
	for i, d := range diffs {
		entry := map[string]any{"field": d.Field, "old": d.Old, "new": d.New, "mode": d.Mode}
		if d.Delta != "" {
			entry["delta"] = d.Delta
		}
		out[i] = entry
	}
	return out
}
