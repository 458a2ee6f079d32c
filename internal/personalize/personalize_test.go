package personalize

import (
	"strings"
	"testing"

	"github.com/caseflow/agentd/pkg/models"
)

func TestApplyDisabledGloballyLeavesResponseUntouched(t *testing.T) {
	p := New(false)
	resp := &models.RenderedResponse{TextFallback: "你好", Blocks: []models.Block{{Kind: models.BlockParagraph, Text: "你好"}}}
	p.Apply(resp, "query", models.ReplyPreferences{Tone: "friendly", Length: "short"})
	if resp.TextFallback != "你好" {
		t.Errorf("expected untouched fallback, got %q", resp.TextFallback)
	}
}

func TestApplySkipsChitChat(t *testing.T) {
	p := New(true)
	resp := &models.RenderedResponse{TextFallback: "随便聊聊"}
	p.Apply(resp, ChitChatSkillName, models.ReplyPreferences{Tone: "friendly"})
	if resp.TextFallback != "随便聊聊" {
		t.Errorf("expected chit-chat reply untouched, got %q", resp.TextFallback)
	}
}

func TestApplySkipsWhenNoPreferencesSet(t *testing.T) {
	p := New(true)
	resp := &models.RenderedResponse{TextFallback: "原文"}
	p.Apply(resp, "query", models.ReplyPreferences{})
	if resp.TextFallback != "原文" {
		t.Errorf("expected untouched fallback with empty prefs, got %q", resp.TextFallback)
	}
}

func TestApplyShortLengthKeepsAtMostTwoLines(t *testing.T) {
	p := New(true)
	resp := &models.RenderedResponse{TextFallback: "第一行\n第二行\n第三行"}
	p.Apply(resp, "query", models.ReplyPreferences{Length: "short"})
	if strings.Count(resp.TextFallback, "\n") > 1 {
		t.Errorf("expected at most 2 lines, got %q", resp.TextFallback)
	}
	if strings.Contains(resp.TextFallback, "第三行") {
		t.Errorf("expected third line dropped, got %q", resp.TextFallback)
	}
}

func TestApplyFriendlyTonePrependsOpener(t *testing.T) {
	p := New(true)
	resp := &models.RenderedResponse{TextFallback: "已完成查询"}
	p.Apply(resp, "query", models.ReplyPreferences{Tone: "friendly"})
	if resp.TextFallback == "已完成查询" {
		t.Error("expected a friendly opener to be prepended")
	}
	if !strings.HasSuffix(resp.TextFallback, "已完成查询") {
		t.Errorf("expected original text preserved as suffix, got %q", resp.TextFallback)
	}
}

func TestApplyTransformsFirstParagraphBlock(t *testing.T) {
	p := New(true)
	resp := &models.RenderedResponse{
		TextFallback: "原文",
		Blocks: []models.Block{
			{Kind: models.BlockParagraph, Text: "原文"},
			{Kind: models.BlockKVList, Items: []models.KVItem{{Key: "a", Value: "b"}}},
		},
	}
	p.Apply(resp, "query", models.ReplyPreferences{Tone: "friendly"})
	if resp.Blocks[0].Text == "原文" {
		t.Error("expected the paragraph block to be personalized")
	}
	if resp.Blocks[1].Kind != models.BlockKVList || len(resp.Blocks[1].Items) != 1 {
		t.Error("expected kv_list block to remain untouched")
	}
}

func TestNextOpenerRoundRobins(t *testing.T) {
	p := New(true)
	seen := make(map[string]bool)
	for i := 0; i < len(friendlyOpeners); i++ {
		seen[p.nextOpener()] = true
	}
	if len(seen) != len(friendlyOpeners) {
		t.Errorf("expected all %d openers to be used in one cycle, saw %d", len(friendlyOpeners), len(seen))
	}
}
