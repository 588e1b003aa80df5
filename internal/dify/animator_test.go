package dify

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestAnimatorSetStep(t *testing.T) {
	a := NewAnimator(Labels(FeatureArticle), time.Hour, nil)

	title, changed := a.SetStep("Requirement Analysis")
	if !changed {
		t.Fatal("first mapped step must report a change")
	}
	if title != "🔍 Analyzing your topic." {
		t.Fatalf("title = %q", title)
	}

	// Same resolved label again: no change, no phase reset.
	if _, changed := a.SetStep("Requirement Analysis"); changed {
		t.Fatal("repeated step must not report a change")
	}

	// Two raw names mapping to the same label collapse to one change.
	if _, changed := a.SetStep("Literature Search"); !changed {
		t.Fatal("new label must report a change")
	}
	if _, changed := a.SetStep("Literature Search (PubMed)"); changed {
		t.Fatal("alias of current label must not report a change")
	}
}

func TestAnimatorUnmappedStepPassesThrough(t *testing.T) {
	a := NewAnimator(Labels(FeatureArticle), time.Hour, nil)
	title, changed := a.SetStep("Some Engine Internal Node")
	if !changed {
		t.Fatal("unmapped step must still change the label")
	}
	if !strings.Contains(title, "Some Engine Internal Node") {
		t.Fatalf("unmapped step title = %q, want verbatim pass-through", title)
	}
}

func TestAnimatorTickCycle(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
	)
	done := make(chan struct{})
	a := NewAnimator(Labels(FeatureArticle), 5*time.Millisecond, func(title string) {
		mu.Lock()
		titles = append(titles, title)
		if len(titles) == 4 {
			close(done)
		}
		mu.Unlock()
	})
	a.SetStep("Drafting")
	a.Start()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("animator never ticked")
	}
	a.Stop()

	mu.Lock()
	got := append([]string(nil), titles[:4]...)
	mu.Unlock()

	// Dots advance 2, 3, 1, 2 from the reset phase; emoji alternates each tick.
	wantDots := []int{2, 3, 1, 2}
	wantEmoji := []string{"✍️", "📝", "✍️", "📝"}
	for i, title := range got {
		if !strings.HasPrefix(title, wantEmoji[i]+" ") {
			t.Fatalf("tick[%d] = %q, want emoji %q", i, title, wantEmoji[i])
		}
		dots := len(title) - len(strings.TrimRight(title, "."))
		if dots != wantDots[i] {
			t.Fatalf("tick[%d] = %q, want %d dots", i, title, wantDots[i])
		}
		if !strings.Contains(title, "Drafting the article") {
			t.Fatalf("tick[%d] = %q, want drafting label", i, title)
		}
	}
}

func TestAnimatorStopSilencesTicks(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	a := NewAnimator(Labels(FeatureArticle), time.Millisecond, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	a.Start()
	time.Sleep(20 * time.Millisecond)
	a.Stop()

	mu.Lock()
	after := count
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	final := count
	mu.Unlock()

	// One in-flight tick may land right at Stop; nothing beyond that.
	if final > after+1 {
		t.Fatalf("ticks after Stop: %d -> %d", after, final)
	}
}

func TestLabelTableResolve(t *testing.T) {
	table := Labels(FeatureTitle)

	label, emoji := table.Resolve("Topic Analysis")
	if label != "Analyzing the topic" || emoji[0] != "🔍" {
		t.Fatalf("mapped resolve = %q %v", label, emoji)
	}

	label, emoji = table.Resolve("  Unmapped Step  ")
	if label != "Unmapped Step" {
		t.Fatalf("unmapped resolve = %q, want trimmed pass-through", label)
	}
	if emoji != [2]string{"✨", "💫"} {
		t.Fatalf("unmapped emoji = %v, want default pair", emoji)
	}

	label, _ = table.Resolve("")
	if label != "Working" {
		t.Fatalf("empty resolve = %q, want Working", label)
	}

	if unknown := Labels("no_such_domain"); unknown == nil {
		t.Fatal("unknown domain must yield a pass-through table, not nil")
	}
}
