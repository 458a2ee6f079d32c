package mutation

import (
	"strings"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/pkg/models"
)

// resolveTable picks the table a mutation acts on: the conversation's
// active_table slot first, then a substring match of a configured
// table name against the utterance. Unlike the query skill's
// resolveTable, there is no LLM disambiguation tier here — a mutation
// proposal with an unresolvable table is simply rejected as
// missing_params, since guessing which table to write to is
// considerably riskier than guessing which table to read from.
func (b *base) resolveTable(sc *models.SkillContext) (models.TableRef, error) {
	if id, ok := sc.Extra["active_table_id"].(string); ok && id != "" {
		name, _ := sc.Extra["active_table_name"].(string)
		return models.TableRef{TableID: id, TableName: name}, nil
	}

	queryLower := strings.ToLower(sc.Query)
	for name, tc := range b.cfg.Tables {
		if strings.Contains(queryLower, strings.ToLower(name)) {
			return models.TableRef{TableID: tc.TableID, TableName: name}, nil
		}
	}

	return models.TableRef{}, agenterr.MissingParams("could not determine which table to operate on", nil)
}
