// Package personalize applies the optional tone/length transforms
// spec §4.9 describes: length=short keeps the fallback to at most two
// lines, tone=friendly prepends an alternating opener. Disabled by
// default and always skipped for chit-chat results, since a small-talk
// reply already carries its own voice.
package personalize

import (
	"strings"
	"sync/atomic"

	"github.com/caseflow/agentd/pkg/models"
)

// ChitChatSkillName is the skill name personalization never touches.
const ChitChatSkillName = "chit_chat"

// friendlyOpeners are cycled round-robin so repeated replies in one
// session don't all start identically.
var friendlyOpeners = []string{"好的，", "没问题，", "收到，"}

// Personalizer applies ReplyPreferences transforms to a rendered
// response's fallback text and first paragraph block.
type Personalizer struct {
	enabled  bool
	openerAt uint64
}

// New creates a Personalizer. enabled gates the whole feature off when
// false, regardless of per-user preferences — the orchestrator's
// global config switch.
func New(enabled bool) *Personalizer {
	return &Personalizer{enabled: enabled}
}

// Apply mutates resp in place (and also returns it, for chaining) to
// reflect prefs, unless personalization is globally disabled, prefs is
// empty, or skillName is the chit-chat skill.
func (p *Personalizer) Apply(resp *models.RenderedResponse, skillName string, prefs models.ReplyPreferences) *models.RenderedResponse {
	if !p.enabled || resp == nil || skillName == ChitChatSkillName {
		return resp
	}
	if prefs.Tone == "" && prefs.Length == "" {
		return resp
	}

	resp.TextFallback = p.transform(resp.TextFallback, prefs)
	for i := range resp.Blocks {
		if resp.Blocks[i].Kind == models.BlockParagraph {
			resp.Blocks[i].Text = p.transform(resp.Blocks[i].Text, prefs)
			break
		}
	}
	return resp
}

func (p *Personalizer) transform(text string, prefs models.ReplyPreferences) string {
	if prefs.Length == "short" {
		text = shorten(text, 2)
	}
	if prefs.Tone == "friendly" {
		text = p.nextOpener() + text
	}
	return text
}

// shorten keeps at most maxLines non-empty lines of text.
func shorten(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
		if len(kept) == maxLines {
			break
		}
	}
	return strings.Join(kept, "\n")
}

// nextOpener round-robins friendlyOpeners so consecutive personalized
// replies don't repeat the same opener. Safe for concurrent use.
func (p *Personalizer) nextOpener() string {
	i := atomic.AddUint64(&p.openerAt, 1) - 1
	return friendlyOpeners[int(i%uint64(len(friendlyOpeners)))]
}
