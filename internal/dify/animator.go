package dify

import (
	"strings"
	"sync"
	"time"
)

const defaultTickInterval = 600 * time.Millisecond

// Animator keeps the client-visible status line moving between real progress
// events: every tick toggles the emoji pair and advances the ellipsis through
// one, two, three dots. It is scoped to a single run and must be stopped when
// the run finishes.
type Animator struct {
	mu       sync.Mutex
	interval time.Duration
	labels   *LabelTable
	onTick   func(title string)

	label    string
	emoji    [2]string
	emojiIdx int
	dotPhase int // 0..2, rendered as phase+1 dots
	stop     chan struct{}
	running  bool
}

func NewAnimator(labels *LabelTable, interval time.Duration, onTick func(title string)) *Animator {
	if labels == nil {
		labels = emptyLabelTable()
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &Animator{
		interval: interval,
		labels:   labels,
		onTick:   onTick,
		label:    "Working",
		emoji:    labels.defaultEmoji,
	}
}

// Start begins ticking. Restarting cancels the previous timer first, so at
// most one timer runs per animator.
func (a *Animator) Start() {
	a.mu.Lock()
	if a.running {
		close(a.stop)
	}
	a.stop = make(chan struct{})
	a.running = true
	stop := a.stop
	a.mu.Unlock()

	go a.loop(stop)
}

func (a *Animator) Stop() {
	a.mu.Lock()
	if a.running {
		close(a.stop)
		a.running = false
	}
	a.mu.Unlock()
}

func (a *Animator) loop(stop chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			title, ok := a.advance(stop)
			if !ok {
				return
			}
			if a.onTick != nil {
				a.onTick(title)
			}
		}
	}
}

// advance moves the animation one frame. It re-checks the stop channel under
// the lock so a late tick never fires after Stop.
func (a *Animator) advance(stop chan struct{}) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case <-stop:
		return "", false
	default:
	}
	a.emojiIdx = 1 - a.emojiIdx
	a.dotPhase = (a.dotPhase + 1) % 3
	return a.composeLocked(), true
}

// SetStep maps an upstream step name through the label table. When the label
// actually changes, the animation phases reset so the new step starts from a
// clean glyph. Returns the composed title and whether anything changed.
func (a *Animator) SetStep(rawStepName string) (string, bool) {
	label, emoji := a.labels.Resolve(rawStepName)

	a.mu.Lock()
	defer a.mu.Unlock()
	if label == a.label {
		return a.composeLocked(), false
	}
	a.label = label
	a.emoji = emoji
	a.emojiIdx = 0
	a.dotPhase = 0
	return a.composeLocked(), true
}

// Title returns the current composed status line without advancing anything.
func (a *Animator) Title() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.composeLocked()
}

func (a *Animator) composeLocked() string {
	return a.emoji[a.emojiIdx] + " " + a.label + strings.Repeat(".", a.dotPhase+1)
}
