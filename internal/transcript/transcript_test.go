package transcript

import (
	"strings"
	"testing"
)

func TestAppendAndRetrieve(t *testing.T) {
	s := New(0, 0)
	s.Append("user-1", Turn{Role: "user", Content: "hello"})
	s.Append("user-1", Turn{Role: "assistant", Content: "hi there"})

	turns := s.Turns("user-1")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Content != "hello" {
		t.Errorf("expected oldest-first order, got %+v", turns)
	}
}

func TestMaxTurnsTrimsOldest(t *testing.T) {
	s := New(0, 2)
	s.Append("user-1", Turn{Content: "1"})
	s.Append("user-1", Turn{Content: "2"})
	s.Append("user-1", Turn{Content: "3"})

	turns := s.Turns("user-1")
	if len(turns) != 2 || turns[0].Content != "2" || turns[1].Content != "3" {
		t.Errorf("expected last 2 turns to survive, got %+v", turns)
	}
}

func TestTokenBudgetTrimsFromOldest(t *testing.T) {
	s := New(5, 0) // 5 tokens ~= 20 chars
	s.Append("user-1", Turn{Content: strings.Repeat("a", 16)})
	s.Append("user-1", Turn{Content: strings.Repeat("b", 16)})

	turns := s.Turns("user-1")
	if len(turns) != 1 {
		t.Fatalf("expected trimming down to 1 turn, got %d", len(turns))
	}
	if !strings.Contains(turns[0].Content, "b") {
		t.Error("expected the newest turn to survive trimming")
	}
}

func TestTokenBudgetNeverDropsLastTurn(t *testing.T) {
	s := New(1, 0)
	huge := Turn{Content: strings.Repeat("x", 1000)}
	s.Append("user-1", huge)

	turns := s.Turns("user-1")
	if len(turns) != 1 {
		t.Errorf("expected the single oversized turn to survive, got %d turns", len(turns))
	}
}

func TestClearRemovesTranscript(t *testing.T) {
	s := New(0, 0)
	s.Append("user-1", Turn{Content: "hi"})
	s.Clear("user-1")

	if len(s.Turns("user-1")) != 0 {
		t.Error("expected empty transcript after Clear")
	}
}

func TestTurnsReturnsIndependentCopy(t *testing.T) {
	s := New(0, 0)
	s.Append("user-1", Turn{Content: "hi"})

	turns := s.Turns("user-1")
	turns[0].Content = "mutated"

	fresh := s.Turns("user-1")
	if fresh[0].Content != "hi" {
		t.Error("expected Turns to return a copy isolated from caller mutation")
	}
}

func TestEstimateTokensCeilingDivision(t *testing.T) {
	if got := EstimateTokens(Turn{Content: "abc"}); got != 1 {
		t.Errorf("expected 1 token for 3 chars, got %d", got)
	}
	if got := EstimateTokens(Turn{Content: "abcde"}); got != 2 {
		t.Errorf("expected 2 tokens for 5 chars, got %d", got)
	}
}
