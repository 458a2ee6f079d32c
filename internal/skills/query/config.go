package query

// Config carries every table-specific and domain-specific knob the
// pipeline needs: alias maps, per-table identity/party field lists,
// and keyword lists the classification and date-field-guessing stages
// match against. Operators edit this alongside the skills-config file
// the CLI's reload-config subcommand re-reads.
type Config struct {
	// TableAliases maps a free-form alias ("案件台账", "cases") to the
	// table's canonical display name.
	TableAliases map[string]string

	// DomainHints maps a keyword ("案件", "court") to the default table
	// name it implies when nothing more specific matched.
	DomainHints map[string]string

	// IdentityFields lists, per table name, the person-type fields to
	// try in order for "my X" resolution (stage 6).
	IdentityFields map[string][]string

	// ClassificationFields lists, per table name, the fields a case-
	// category alias (stage 3) is keyword-searched against.
	ClassificationFields map[string][]string

	// ClassificationAliases maps a case-category alias ("执行", "仲裁")
	// to the canonical category keyword stored in ClassificationFields.
	ClassificationAliases map[string]string

	// IdentifierFields lists the fields searched for a case/project
	// identifier token (stages 4a and 9).
	IdentifierFields []string

	// PartyFields lists the fields searched for a party/client label
	// (stage 4b).
	PartyFields []string

	// HighPriorityPartyFields is the subset of PartyFields trusted for
	// the organization-shaped post-filter (stages 4b, 7, and 10's
	// degrade-to-keyword path).
	HighPriorityPartyFields []string

	// HearingDateField and DeadlineDateField are the date fields stage
	// 8 guesses between via keyword ("开庭" vs "截止/到期").
	HearingDateField   string
	DeadlineDateField  string

	// DefaultPageSize bounds a single search call.
	DefaultPageSize int

	// FallbackPageCount and FallbackPageSize bound stage 3's local
	// fallback pagination when the backend rejects a filter.
	FallbackPageCount int
	FallbackPageSize  int

	// AcceptConfidence and ConfirmConfidence are stage 1's thresholds:
	// >= AcceptConfidence accepts silently, >= ConfirmConfidence accepts
	// with a notice, below both asks the user to disambiguate.
	AcceptConfidence  float64
	ConfirmConfidence float64

	// SemanticConfidenceThreshold gates stage 4's regex-based slot
	// extraction.
	SemanticConfidenceThreshold float64
}

// WithDefaults fills zero-valued numeric fields with the spec's
// documented thresholds and bounds.
func (c Config) WithDefaults() Config {
	if c.AcceptConfidence == 0 {
		c.AcceptConfidence = 0.85
	}
	if c.ConfirmConfidence == 0 {
		c.ConfirmConfidence = 0.65
	}
	if c.SemanticConfidenceThreshold == 0 {
		c.SemanticConfidenceThreshold = 0.6
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 50
	}
	if c.FallbackPageCount <= 0 {
		c.FallbackPageCount = 5
	}
	if c.FallbackPageSize <= 0 {
		c.FallbackPageSize = 100
	}
	if c.HearingDateField == "" {
		c.HearingDateField = "开庭日期"
	}
	if c.DeadlineDateField == "" {
		c.DeadlineDateField = "截止日期"
	}
	return c
}
