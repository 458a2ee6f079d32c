package cardtemplate

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemplate(t *testing.T, root, rel, contents string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
}

func TestRenderSubstitutesVariable(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "action/confirm.md", "即将更新 {{ table_name }} 的记录。")

	e, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := e.Render("action/confirm.md", map[string]any{"table_name": "案件台账"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "即将更新 案件台账 的记录。" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestRenderMissingVariableSubstitutesEmpty(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "action/confirm.md", "before[{{ missing }}]after")

	e, _ := New(dir, Options{})
	out, err := e.Render("action/confirm.md", map[string]any{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "before[]after" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestIfBlockKeptWhenNonBlank(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "query/detail.md", "头部\n{{#if note}}备注：{{ note }}{{/if}}\n尾部")

	e, _ := New(dir, Options{})
	out, err := e.Render("query/detail.md", map[string]any{"note": "已结案"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "头部\n备注：已结案\n尾部" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestIfBlockDroppedWhenBlank(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "query/detail.md", "头部{{#if note}}备注：{{ note }}{{/if}}尾部")

	e, _ := New(dir, Options{})
	out, err := e.Render("query/detail.md", map[string]any{"note": ""})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "头部尾部" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestIfBlockDroppedWhenSentinelDash(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "query/detail.md", "头部{{#if note}}备注：{{ note }}{{/if}}尾部")

	e, _ := New(dir, Options{})
	out, err := e.Render("query/detail.md", map[string]any{"note": "—"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "头部尾部" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestIfBlockDroppedWhenVariableAbsent(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "query/detail.md", "头部{{#if note}}备注：{{ note }}{{/if}}尾部")

	e, _ := New(dir, Options{})
	out, err := e.Render("query/detail.md", map[string]any{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "头部尾部" {
		t.Errorf("unexpected render: %q", out)
	}
}

func TestBlankRunsCollapsed(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "query/list.md", "一\n{{#if gone}}x{{/if}}\n\n\n\n二")

	e, _ := New(dir, Options{})
	out, err := e.Render("query/list.md", map[string]any{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "一\n\n\n二" {
		t.Errorf("expected collapsed blank runs, got %q", out)
	}
}

func TestRenderUnknownTemplateErrors(t *testing.T) {
	dir := t.TempDir()
	e, _ := New(dir, Options{})
	if _, err := e.Render("missing/path.md", nil); err == nil {
		t.Error("expected error for unknown template path")
	}
}

func TestRenderJSONUnmarshalsOutput(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "wrapper/card.json", `{"title": "{{ title }}", "theme": "blue"}`)

	e, _ := New(dir, Options{})
	var out struct {
		Title string `json:"title"`
		Theme string `json:"theme"`
	}
	if err := e.RenderJSON("wrapper/card.json", map[string]any{"title": "查询结果"}, &out); err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	if out.Title != "查询结果" || out.Theme != "blue" {
		t.Errorf("unexpected decoded struct: %+v", out)
	}
}

func TestRenderCachesByPathAndFingerprint(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "action/confirm.md", "值：{{ v }}")

	e, _ := New(dir, Options{})
	out1, err := e.Render("action/confirm.md", map[string]any{"v": "1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// Mutate the on-disk file without calling Reload; a cached render
	// for the same params must not pick up the change.
	writeTemplate(t, dir, "action/confirm.md", "changed：{{ v }}")
	out2, err := e.Render("action/confirm.md", map[string]any{"v": "1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out1 != out2 {
		t.Errorf("expected cached render to be reused, got %q then %q", out1, out2)
	}

	// A different params fingerprint is not cached under the same key.
	out3, err := e.Render("action/confirm.md", map[string]any{"v": "2"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out3 == out1 {
		t.Errorf("expected a distinct render for distinct params, got %q", out3)
	}
}

func TestReloadDropsCacheAndPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "action/confirm.md", "原始：{{ v }}")

	e, _ := New(dir, Options{})
	if _, err := e.Render("action/confirm.md", map[string]any{"v": "1"}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	writeTemplate(t, dir, "action/confirm.md", "更新：{{ v }}")
	if err := e.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	out, err := e.Render("action/confirm.md", map[string]any{"v": "1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "更新：1" {
		t.Errorf("expected reloaded template content, got %q", out)
	}
}

func TestCacheEvictsLeastRecentlyTouchedWhenOverSize(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "action/confirm.md", "{{ v }}")

	e, err := New(dir, Options{MaxCacheSize: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.Render("action/confirm.md", map[string]any{"v": "1"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := e.Render("action/confirm.md", map[string]any{"v": "2"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := e.Render("action/confirm.md", map[string]any{"v": "3"}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if len(e.cache) > 2 {
		t.Errorf("expected cache bounded to 2 entries, got %d", len(e.cache))
	}
}
