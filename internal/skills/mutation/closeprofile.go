package mutation

import "strings"

// CloseProfile is a per-table-type, per-semantic close configuration
// (spec §4.8): matching one of KeywordAliases against the original
// utterance resolves which status to write and whether the seizure
// reminder and open-cases view membership are affected. The semantic
// is picked purely by configurable keyword lists — there is no
// LLM-based guessing for unmatched phrases, they fall back to the
// "default" profile.
type CloseProfile struct {
	// Semantic names the profile ("default", "enforcement_end").
	Semantic string

	// KeywordAliases are matched against the utterance to select this
	// profile.
	KeywordAliases []string

	// StatusValue is written to the table's status field.
	StatusValue string

	// CancelsReminder true means closing cancels any standing
	// seizure/expiry reminder tied to the record.
	CancelsReminder bool

	// RemovesFromOpenView true means the record leaves the open-cases
	// view once this profile applies.
	RemovesFromOpenView bool
}

// resolveCloseProfile matches utterance against tc's registered close
// profiles in order, falling back to the table's own "default" profile,
// and finally to a generic "已结案" status when the table registers no
// profiles at all.
func resolveCloseProfile(tc TableConfig, utterance string) CloseProfile {
	for _, profile := range tc.CloseProfiles {
		for _, alias := range profile.KeywordAliases {
			if containsFold(utterance, alias) {
				return profile
			}
		}
	}
	for _, profile := range tc.CloseProfiles {
		if profile.Semantic == "default" {
			return profile
		}
	}
	return CloseProfile{Semantic: "default", StatusValue: "已结案", RemovesFromOpenView: true, CancelsReminder: true}
}

func containsFold(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
