package coordinator

import "github.com/northbridge-labs/taskflow/observability"

const (
	EventWorkflowStart     observability.EventType = "coordinator.workflow.start"
	EventWorkflowComplete  observability.EventType = "coordinator.workflow.complete"
	EventItemDispatch      observability.EventType = "coordinator.item.dispatch"
	EventItemDispatchFail  observability.EventType = "coordinator.item.dispatch_failed"
	EventBarrierResolved   observability.EventType = "coordinator.barrier.resolved"
	EventFailFastTriggered observability.EventType = "coordinator.failfast.triggered"
)
