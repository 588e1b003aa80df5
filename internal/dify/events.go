package dify

import (
	"encoding/json"
	"strings"
)

// Normalized event kinds emitted toward the browser. This vocabulary is the
// only contract downstream consumers depend on; the upstream engine's raw
// event names never leave this package.
const (
	EventWorkflowStarted  = "workflow_started"
	EventWorkflowRunning  = "workflow_running"
	EventTextChunk        = "text_chunk"
	EventWorkflowFinished = "workflow_finished"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Upstream raw vocabulary.
const (
	upstreamPing             = "ping"
	upstreamWorkflowStarted  = "workflow_started"
	upstreamNodeStarted      = "node_started"
	upstreamNodeFinished     = "node_finished"
	upstreamTextChunk        = "text_chunk"
	upstreamWorkflowFinished = "workflow_finished"
)

type FileRef struct {
	URL string `json:"url"`
}

// EventData is the payload of a NormalizedEvent. Progress crosses the wire as
// a string; the browser's SSE parser expects it that way.
type EventData struct {
	WorkflowID  string    `json:"workflow_id"`
	Progress    string    `json:"progress"`
	Status      string    `json:"status,omitempty"`
	Title       string    `json:"title,omitempty"`
	Text        string    `json:"text,omitempty"`
	Result      []string  `json:"result,omitempty"`
	Files       []FileRef `json:"files,omitempty"`
	ElapsedTime string    `json:"elapsed_time,omitempty"`
}

type NormalizedEvent struct {
	Event         string    `json:"event"`
	TaskID        string    `json:"task_id"`
	WorkflowRunID string    `json:"workflow_run_id"`
	Data          EventData `json:"data"`
}

// Sink receives normalized events in emission order. Returning an error tells
// the processor the downstream consumer is gone and further work is pointless.
type Sink func(ev NormalizedEvent) error

// upstreamEvent is the envelope shared by every upstream data frame. Data is
// kept raw because its shape depends on Event.
type upstreamEvent struct {
	Event         string          `json:"event"`
	TaskID        string          `json:"task_id"`
	WorkflowRunID string          `json:"workflow_run_id"`
	Data          json.RawMessage `json:"data"`
}

type startedData struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	Inputs     json.RawMessage `json:"inputs"`
}

// workflowIDFromInputs digs sys.workflow_id out of a started frame's inputs.
// Some engine versions send inputs as an object, others as a JSON string.
func (d startedData) workflowIDFromInputs() string {
	raw := d.Inputs
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}
	var inputs map[string]any
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return ""
	}
	if id, ok := inputs["sys.workflow_id"].(string); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

type nodeStartedData struct {
	Title    string `json:"title"`
	NodeType string `json:"node_type"`
}

type nodeFinishedData struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

type textChunkData struct {
	Text string `json:"text"`
}

type finishedData struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      string          `json:"status"`
	Outputs     json.RawMessage `json:"outputs"`
	Files       []finishedFile  `json:"files"`
	ElapsedTime float64         `json:"elapsed_time"`
}

type finishedFile struct {
	URL       string `json:"url"`
	RemoteURL string `json:"remote_url"`
}
