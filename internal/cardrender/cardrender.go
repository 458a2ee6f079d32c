// Package cardrender assembles a models.RenderedResponse from a
// models.SkillResult (spec component #13): the always-present
// paragraph fallback, the optional kv_list of safe scalar fields, and
// the card_template selection and parameter closure described by spec
// §4.9. Grounded on the teacher's reply-assembly shape in
// internal/reply (the paragraph+fallback contract), generalized to
// this domain's template-selection matrix instead of the teacher's
// silent-reply/heartbeat handling.
package cardrender

import (
	"fmt"
	"strings"

	"github.com/caseflow/agentd/internal/cardtemplate"
	"github.com/caseflow/agentd/pkg/models"
)

// Skill name constants mirrored from the skill implementations so the
// renderer can select templates without importing the skill packages
// themselves (which would create an import cycle back into rendering).
const (
	SkillQuery  = "query"
	SkillCreate = "create"
	SkillUpdate = "update"
	SkillDelete = "delete"
)

// sentinelDataKeys are Data entries that exist for internal wiring
// (pending-action payloads, raw record lists, debug traces) and must
// never leak into the kv_list block.
var sentinelDataKeys = map[string]bool{
	"pending_action": true,
	"pending_delete": true,
	"records":        true,
	"debug":          true,
	"cancelled":      true,
	"update_guide":   true,
	"error_code":     true,
	"rich":           true,
	"card_version":   true,
}

// Renderer turns skill results into RenderedResponses.
type Renderer struct {
	templates *cardtemplate.Engine
}

// New creates a Renderer. templates may be nil, in which case
// CardTemplate is always left unset and only the plaintext/kv_list
// blocks are produced — useful for channel adapters that have no card
// surface.
func New(templates *cardtemplate.Engine) *Renderer {
	return &Renderer{templates: templates}
}

// Render builds a RenderedResponse from result, deterministically:
// rule 1 (always a paragraph fallback), rule 2 (kv_list for flat
// mutation data), rule 3 (card_template selection).
func (r *Renderer) Render(result *models.SkillResult) *models.RenderedResponse {
	fallback := result.ReplyText
	if strings.TrimSpace(fallback) == "" {
		fallback = defaultFallback(result)
	}

	blocks := []models.Block{{Kind: models.BlockParagraph, Text: fallback}}
	if kv := kvListBlock(result); kv != nil {
		blocks = append(blocks, *kv)
	}

	resp := &models.RenderedResponse{
		TextFallback: fallback,
		Blocks:       blocks,
		Meta:         map[string]any{"skill": result.SkillName, "success": result.Success},
	}

	if r.templates != nil {
		resp.CardTemplate = selectTemplate(result, fallback)
	}
	return resp
}

func defaultFallback(result *models.SkillResult) string {
	if result.Success {
		return "操作已完成。"
	}
	return "处理请求时发生错误，请稍后重试。"
}

// kvListBlock builds rule 2's kv_list: only for a successful mutation
// whose Data is a flat scalar map, excluding sentinel keys and nested
// values.
func kvListBlock(result *models.SkillResult) *models.Block {
	if !result.Success || len(result.Data) == 0 {
		return nil
	}

	var items []models.KVItem
	for key, value := range result.Data {
		if sentinelDataKeys[key] {
			continue
		}
		text, ok := flatScalarText(value)
		if !ok {
			continue
		}
		items = append(items, models.KVItem{Key: key, Value: text})
	}
	if len(items) == 0 {
		return nil
	}
	return &models.Block{Kind: models.BlockKVList, Items: items}
}

// flatScalarText renders value as display text iff it is a flat
// scalar (string, number, bool, nil) rather than a nested map/slice,
// which rule 2 excludes.
func flatScalarText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case bool:
		if v {
			return "是", true
		}
		return "否", true
	case fmt.Stringer:
		return v.String(), true
	default:
		switch value.(type) {
		case map[string]any, []any:
			return "", false
		}
		return fmt.Sprintf("%v", value), true
	}
}

// selectTemplate implements rule 3's (skill_name, success,
// pending_action?, pending_delete?) selection matrix.
func selectTemplate(result *models.SkillResult, fallback string) *models.CardTemplateRef {
	if !result.Success {
		return &models.CardTemplateRef{
			TemplateID: "error.notice",
			Version:    "v1",
			Params:     errorParams(result, fallback),
		}
	}

	if result.SkillName == SkillDelete {
		return deleteTemplate(result, fallback)
	}

	if _, pending := result.Data["pending_action"]; pending {
		templateID := "action.confirm"
		if truthy(result.Data["update_guide"]) {
			templateID = "update.guide"
		}
		return &models.CardTemplateRef{TemplateID: templateID, Version: "v1", Params: baseParams(result, fallback)}
	}

	switch result.SkillName {
	case SkillQuery:
		return queryTemplate(result, fallback)
	case SkillCreate:
		return &models.CardTemplateRef{TemplateID: "create.success", Version: "v1", Params: baseParams(result, fallback)}
	case SkillUpdate:
		return &models.CardTemplateRef{TemplateID: "update.success", Version: "v1", Params: baseParams(result, fallback)}
	default:
		return &models.CardTemplateRef{TemplateID: "action.confirm", Version: "v1", Params: baseParams(result, fallback)}
	}
}

func deleteTemplate(result *models.SkillResult, fallback string) *models.CardTemplateRef {
	if _, pending := result.Data["pending_delete"]; pending {
		return &models.CardTemplateRef{TemplateID: "delete.confirm", Version: "v1", Params: baseParams(result, fallback)}
	}
	if truthy(result.Data["cancelled"]) {
		return &models.CardTemplateRef{TemplateID: "delete.cancelled", Version: "v1", Params: baseParams(result, fallback)}
	}
	return &models.CardTemplateRef{TemplateID: "delete.success", Version: "v1", Params: baseParams(result, fallback)}
}

func queryTemplate(result *models.SkillResult, fallback string) *models.CardTemplateRef {
	version := "v1"
	if truthy(result.Data["rich"]) {
		version = "v2"
	}

	records, _ := result.Data["records"].([]models.Record)
	if len(records) == 1 {
		return &models.CardTemplateRef{TemplateID: "query.detail", Version: version, Params: baseParams(result, fallback)}
	}
	return &models.CardTemplateRef{TemplateID: "query.list", Version: version, Params: baseParams(result, fallback)}
}

// baseParams closes the skill's Data dict over the template engine's
// params dict, adding the fallback text for templates that want to
// echo it inside a card body.
func baseParams(result *models.SkillResult, fallback string) map[string]any {
	params := make(map[string]any, len(result.Data)+2)
	for k, v := range result.Data {
		params[k] = v
	}
	params["text_fallback"] = fallback
	params["skill_name"] = result.SkillName
	return params
}

// errorClass categories, matched by spec §4.9 over the explicit
// error_code first (set by skills that wrap an *agenterr.Error), then
// falling back to a keyword scan of the message text.
const (
	errorClassMissingParams    = "missing_params"
	errorClassRecordNotFound   = "record_not_found"
	errorClassPermissionDenied = "permission_denied"
	errorClassGeneral          = "general"
)

var errorCodeClass = map[string]string{
	"missing_params":    errorClassMissingParams,
	"record_not_found":  errorClassRecordNotFound,
	"permission_denied": errorClassPermissionDenied,
}

var errorKeywordClass = []struct {
	keyword string
	class   string
}{
	{"缺少", errorClassMissingParams},
	{"补充", errorClassMissingParams},
	{"未找到", errorClassRecordNotFound},
	{"不存在", errorClassRecordNotFound},
	{"权限", errorClassPermissionDenied},
	{"无权", errorClassPermissionDenied},
}

func errorParams(result *models.SkillResult, fallback string) map[string]any {
	params := baseParams(result, fallback)
	params["error_class"] = classifyError(result, fallback)
	return params
}

func classifyError(result *models.SkillResult, fallback string) string {
	if code, ok := result.Data["error_code"].(string); ok {
		if class, ok := errorCodeClass[code]; ok {
			return class
		}
	}

	haystack := result.Message + " " + fallback
	for _, entry := range errorKeywordClass {
		if strings.Contains(haystack, entry.keyword) {
			return entry.class
		}
	}
	return errorClassGeneral
}

func truthy(value any) bool {
	b, ok := value.(bool)
	return ok && b
}
