package worker

import "github.com/northbridge-labs/taskflow/observability"

const (
	EventItemStarted   observability.EventType = "worker.item.started"
	EventItemCompleted observability.EventType = "worker.item.completed"
)
