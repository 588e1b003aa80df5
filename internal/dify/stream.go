package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/medscribe/medscribe-backend/internal/logger"
)

// FramingMode selects how the upstream byte stream is split into frames.
type FramingMode int

const (
	// FramingBlankLine delimits frames on blank lines, the usual SSE shape.
	FramingBlankLine FramingMode = iota
	// FramingLine treats every newline-terminated line as its own frame. The
	// thesis-outline workflow streams this way; kept as a mode rather than
	// unified because it is unclear whether the upstream difference is
	// intentional.
	FramingLine
)

const (
	defaultMaxProgress = 99
	pingProgressStep   = 1
	readBufferSize     = 4096
)

// RunState is the mutable per-run state owned by one Processor. One instance
// per upstream call, never shared across runs.
type RunState struct {
	TaskID        string
	WorkflowRunID string
	WorkflowID    string
	Progress      int
	FinishedSteps int
	TotalSteps    int
}

type ProcessorConfig struct {
	Domain      string
	TotalSteps  int
	MaxProgress int // progress ceiling before completion; defaults to 99
	Framing     FramingMode
	Labels      *LabelTable
	Extract     ExtractFunc
	// TickInterval overrides the animator cadence; tests set it large to keep
	// ticks out of the event sequence.
	TickInterval time.Duration
	// OnUnknownEvent, when set, receives upstream event kinds the base
	// processor does not recognize.
	OnUnknownEvent func(event string, data json.RawMessage)
}

// Processor is the protocol state machine converting upstream SSE bytes into
// NormalizedEvents. It guarantees monotonic progress and exactly one terminal
// workflow_finished per run, and it never lets an upstream malfunction escape
// as anything other than a well-formed failed event.
type Processor struct {
	cfg  ProcessorConfig
	log  *logger.Logger
	sink Sink
	anim *Animator

	mu          sync.Mutex
	state       RunState
	carry       []byte
	text        strings.Builder
	lastEmitted int
	started     bool
	finished    bool
	sinkClosed  bool
}

func NewProcessor(cfg ProcessorConfig, log *logger.Logger, sink Sink) *Processor {
	if cfg.MaxProgress <= 0 {
		cfg.MaxProgress = defaultMaxProgress
	}
	if cfg.Labels == nil {
		cfg.Labels = Labels(cfg.Domain)
	}
	p := &Processor{
		cfg:  cfg,
		log:  log.With("component", "StreamProcessor", "domain", cfg.Domain),
		sink: sink,
	}
	p.state.TotalSteps = cfg.TotalSteps
	p.anim = NewAnimator(cfg.Labels, cfg.TickInterval, p.handleTick)
	return p
}

// State returns a copy of the current run state.
func (p *Processor) State() RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run consumes the upstream body until EOF or until the run terminates,
// then closes it. Read unblocking on ctx cancellation is the transport's
// job (http response bodies do this); Run only checks ctx between chunks.
func (p *Processor) Run(ctx context.Context, body io.ReadCloser) {
	defer func() { _ = body.Close() }()
	defer p.anim.Stop()

	buf := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			p.abandon()
			return
		}
		n, err := body.Read(buf)
		if n > 0 {
			if !p.Feed(buf[:n]) {
				// Terminal event sent or browser gone; release the upstream
				// connection instead of draining it.
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Warn("Upstream stream read error", "error", err)
			}
			p.Finish()
			return
		}
	}
}

// Feed ingests one chunk of upstream bytes, acting on every complete frame it
// now holds. Partial trailing data is buffered for the next chunk. Returns
// false once the run has terminated or the downstream sink has closed.
func (p *Processor) Feed(chunk []byte) bool {
	p.mu.Lock()
	p.carry = append(p.carry, chunk...)
	frames := p.splitFramesLocked()
	p.mu.Unlock()

	for _, frame := range frames {
		p.handleFrame(frame)
	}

	p.mu.Lock()
	alive := !p.finished && !p.sinkClosed
	p.mu.Unlock()
	return alive
}

// Finish handles upstream EOF: flush any dangling frame, then, if no
// workflow_finished was ever observed, synthesize one from accumulated state
// so the client is never left waiting.
func (p *Processor) Finish() {
	p.mu.Lock()
	var trailing string
	if len(p.carry) > 0 {
		trailing = string(p.carry)
		p.carry = nil
	}
	p.mu.Unlock()
	if strings.TrimSpace(trailing) != "" {
		p.handleFrame(trailing)
	}

	p.anim.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.log.Warn("Upstream stream ended without workflow_finished, synthesizing completion")
	p.finishLocked(finishedData{}, nil)
}

// Abort emits a synthetic failed terminal event. Used when the upstream call
// itself failed; the SSE response toward the browser has already started, so
// the failure must travel in-band.
func (p *Processor) Abort(msg string) {
	p.anim.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.state.Progress = 100
	ev := p.eventLocked(EventWorkflowFinished)
	ev.Data.Status = StatusFailed
	ev.Data.Result = []string{msg}
	p.emitLocked(ev)
	p.finished = true
}

func (p *Processor) splitFramesLocked() []string {
	delim := []byte("\n\n")
	if p.cfg.Framing == FramingLine {
		delim = []byte("\n")
	}
	var frames []string
	for {
		idx := bytes.Index(p.carry, delim)
		if idx < 0 {
			return frames
		}
		frames = append(frames, string(p.carry[:idx]))
		p.carry = p.carry[idx+len(delim):]
	}
}

// parseFrame splits one frame into its event name and joined data payload.
// Unknown line prefixes and SSE comments are skipped.
func parseFrame(frame string) (event string, data string) {
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data != "" {
				data += "\n"
			}
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	return event, data
}

func (p *Processor) handleFrame(frame string) {
	event, data := parseFrame(frame)
	if data == "" {
		if event == upstreamPing {
			p.handlePing()
		}
		return
	}

	var ev upstreamEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		// Malformed frames are dropped, never fatal: some transports
		// interleave ping lines with partial JSON.
		p.log.Warn("Dropping malformed upstream frame", "error", err)
		return
	}

	switch ev.Event {
	case upstreamWorkflowStarted:
		p.handleStarted(ev)
	case upstreamNodeStarted:
		p.handleNodeStarted(ev)
	case upstreamNodeFinished:
		p.handleNodeFinished()
	case upstreamTextChunk:
		p.handleTextChunk(ev)
	case upstreamWorkflowFinished:
		p.handleFinished(ev)
	case upstreamPing:
		p.handlePing()
	default:
		if p.cfg.OnUnknownEvent != nil {
			p.cfg.OnUnknownEvent(ev.Event, ev.Data)
		}
	}
}

// handlePing nudges progress by one while the upstream is silent, so the
// client never perceives a stall during long gaps.
func (p *Processor) handlePing() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished || !p.started {
		return
	}
	if p.state.Progress >= p.cfg.MaxProgress {
		return
	}
	p.state.Progress += pingProgressStep
	if p.state.Progress > p.cfg.MaxProgress {
		p.state.Progress = p.cfg.MaxProgress
	}
	ev := p.eventLocked(EventWorkflowRunning)
	ev.Data.Status = StatusRunning
	ev.Data.Title = p.anim.Title()
	p.emitLocked(ev)
}

func (p *Processor) handleStarted(ev upstreamEvent) {
	var d startedData
	_ = json.Unmarshal(ev.Data, &d)

	p.mu.Lock()
	if ev.TaskID != "" {
		p.state.TaskID = ev.TaskID
	}
	switch {
	case ev.WorkflowRunID != "":
		p.state.WorkflowRunID = ev.WorkflowRunID
	case d.ID != "":
		p.state.WorkflowRunID = d.ID
	}
	wid := d.WorkflowID
	if wid == "" {
		wid = d.workflowIDFromInputs()
	}
	if wid != "" {
		p.state.WorkflowID = wid
	}
	p.state.Progress = 0
	p.state.FinishedSteps = 0
	p.started = true
	p.lastEmitted = 0

	out := p.eventLocked(EventWorkflowStarted)
	out.Data.Status = StatusRunning
	p.emitLocked(out)
	p.mu.Unlock()

	p.anim.Start()
}

// handleNodeStarted switches the animated label as soon as the upstream
// reports a new step; the client must not wait for the next tick to see it.
func (p *Processor) handleNodeStarted(ev upstreamEvent) {
	var d nodeStartedData
	if err := json.Unmarshal(ev.Data, &d); err != nil {
		p.log.Warn("Dropping malformed node_started data", "error", err)
		return
	}
	title, changed := p.anim.SetStep(d.Title)
	if !changed {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished || !p.started {
		return
	}
	out := p.eventLocked(EventWorkflowRunning)
	out.Data.Status = StatusRunning
	out.Data.Title = title
	p.emitLocked(out)
}

func (p *Processor) handleNodeFinished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.state.FinishedSteps++
	if p.cfg.TotalSteps <= 0 {
		return
	}
	pct := p.state.FinishedSteps * 100 / p.cfg.TotalSteps
	if pct > p.cfg.MaxProgress {
		pct = p.cfg.MaxProgress
	}
	if pct > p.state.Progress {
		p.state.Progress = pct
	}
	// Deduplicated: only emit when the derived value actually advances past
	// what the client last saw.
	if p.state.Progress > p.lastEmitted {
		ev := p.eventLocked(EventWorkflowRunning)
		ev.Data.Status = StatusRunning
		ev.Data.Title = p.anim.Title()
		p.emitLocked(ev)
	}
}

func (p *Processor) handleTextChunk(ev upstreamEvent) {
	var d textChunkData
	if err := json.Unmarshal(ev.Data, &d); err != nil {
		p.log.Warn("Dropping malformed text_chunk data", "error", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.text.WriteString(d.Text)
	out := p.eventLocked(EventTextChunk)
	out.Data.Title = p.anim.Title()
	out.Data.Text = d.Text
	p.emitLocked(out)
}

func (p *Processor) handleFinished(ev upstreamEvent) {
	var d finishedData
	if err := json.Unmarshal(ev.Data, &d); err != nil {
		p.log.Warn("Malformed workflow_finished data, synthesizing completion", "error", err)
	}
	p.anim.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	if ev.TaskID != "" {
		p.state.TaskID = ev.TaskID
	}
	if d.ID != "" {
		p.state.WorkflowRunID = d.ID
	}
	if d.WorkflowID != "" {
		p.state.WorkflowID = d.WorkflowID
	}
	p.finishLocked(d, ev.Data)
}

// finishLocked runs the domain extraction rule and emits the single terminal
// event. Extraction yielding nothing usable downgrades the run to failed; it
// never raises.
func (p *Processor) finishLocked(d finishedData, raw json.RawMessage) {
	p.state.Progress = 100

	var res ExtractResult
	ok := false
	if p.cfg.Extract != nil {
		res, ok = p.cfg.Extract(d, raw, p.text.String())
	}

	ev := p.eventLocked(EventWorkflowFinished)
	if ok {
		ev.Data.Status = StatusSucceeded
		ev.Data.Result = res.Result
		ev.Data.Files = res.Files
	} else {
		ev.Data.Status = StatusFailed
		ev.Data.Result = []string{"generation produced no usable output"}
	}
	if d.ElapsedTime > 0 {
		ev.Data.ElapsedTime = fmt.Sprintf("%.2f", d.ElapsedTime)
	}
	p.emitLocked(ev)
	p.finished = true
}

// handleTick is the animator callback: re-emit the current progress with the
// freshly advanced title so the UI stays visibly alive.
func (p *Processor) handleTick(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.finished {
		return
	}
	ev := p.eventLocked(EventWorkflowRunning)
	ev.Data.Status = StatusRunning
	ev.Data.Title = title
	p.emitLocked(ev)
}

// abandon marks the run dead without a terminal event; the downstream
// consumer disconnected, so there is nobody left to tell.
func (p *Processor) abandon() {
	p.mu.Lock()
	p.finished = true
	p.mu.Unlock()
}

func (p *Processor) eventLocked(kind string) NormalizedEvent {
	return NormalizedEvent{
		Event:         kind,
		TaskID:        p.state.TaskID,
		WorkflowRunID: p.state.WorkflowRunID,
		Data: EventData{
			WorkflowID: p.state.WorkflowID,
			Progress:   strconv.Itoa(p.state.Progress),
		},
	}
}

func (p *Processor) emitLocked(ev NormalizedEvent) {
	if p.sinkClosed {
		return
	}
	if err := p.sink(ev); err != nil {
		p.sinkClosed = true
		p.log.Debug("Downstream sink closed", "error", err)
		return
	}
	p.lastEmitted = p.state.Progress
}
