package workflow

import "github.com/northbridge-labs/taskflow/observability"

// Observability event types emitted by the workflow runtime. Subsystem-
// specific EventType constants follow the same "<package>.<noun>.<verb>"
// convention the coordinator and worker packages use.
const (
	EventWorkflowStarted  observability.EventType = "workflow.instance.started"
	EventWorkflowYielded  observability.EventType = "workflow.instance.yielded"
	EventWorkflowResumed  observability.EventType = "workflow.instance.resumed"
	EventWorkflowFinished observability.EventType = "workflow.instance.finished"
)
