package workflow

import "github.com/northbridge-labs/taskflow/item"

// SubworkflowItem lets one workflow yield another workflow as if it were
// any other work item: the coordinator starts Fn as a nested workflow
// instance and completes this item once that instance finishes, with Err
// set to the sub-workflow's terminal error. A parent yields it exactly like
// any other item and it joins the same barrier; at dispatch the coordinator
// recognizes item.KindWorkflow and starts Fn itself instead of looking up a
// registered worker.
type SubworkflowItem struct {
	item.Base

	Fn Func
}

// NewSubworkflow wraps fn as a yieldable work item.
func NewSubworkflow(fn Func) *SubworkflowItem {
	return &SubworkflowItem{
		Base: item.NewBase(item.KindWorkflow),
		Fn:   fn,
	}
}
