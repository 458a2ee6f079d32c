package query

import (
	"context"
	"strings"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/internal/bitable"
)

// executeResult carries stage 3's outcome plus whether a local
// fallback was used, surfaced in the skill result's debug field.
type executeResult struct {
	Search       *bitable.SearchResult
	UsedFallback bool
}

// execute implements stage 3: run the compiled plan, and on a
// filter-not-supported error fall back to paginating the table and
// filtering locally, bounded by the configured page count/size.
func (s *Skill) execute(ctx context.Context, plan *queryPlan, tableID string) (*executeResult, error) {
	result, err := plan.run(ctx)
	if err == nil {
		return &executeResult{Search: result}, nil
	}
	if agenterr.GetCode(err) != agenterr.CodeFilterNotSupported {
		return nil, err
	}

	fallback, fallbackErr := s.localFallback(ctx, tableID, plan)
	if fallbackErr != nil {
		return nil, fallbackErr
	}
	return &executeResult{Search: fallback, UsedFallback: true}, nil
}

// localFallback pages through tableID (ignoring the default view) up
// to FallbackPageCount pages of FallbackPageSize, keeping only records
// whose fallbackFields contain fallbackKeyword when one was provided.
func (s *Skill) localFallback(ctx context.Context, tableID string, plan *queryPlan) (*bitable.SearchResult, error) {
	result := &bitable.SearchResult{}

	pageToken := ""
	for page := 0; page < s.cfg.FallbackPageCount; page++ {
		batch, err := s.client.Search(ctx, tableID, "", true, s.cfg.FallbackPageSize, pageToken)
		if err != nil {
			return nil, err
		}

		for _, record := range batch.Records {
			if plan.fallbackKeyword == "" || recordMatchesKeyword(record.FieldsText, plan.fallbackFields, plan.fallbackKeyword) {
				result.Records = append(result.Records, record)
			}
		}

		if !batch.HasMore {
			break
		}
		pageToken = batch.PageToken
	}

	result.Total = len(result.Records)
	return result, nil
}

func recordMatchesKeyword(fieldsText map[string]string, fields []string, keyword string) bool {
	if len(fields) == 0 {
		for _, text := range fieldsText {
			if strings.Contains(text, keyword) {
				return true
			}
		}
		return false
	}
	for _, field := range fields {
		if strings.Contains(fieldsText[field], keyword) {
			return true
		}
	}
	return false
}
