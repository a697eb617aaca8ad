// Package item defines the Work Item data model: the typed unit of
// asynchronous work that flows between workflows, the coordinator, and
// workers. Every concrete item kind (Fetch, Subprocess, Timer, Workflow)
// embeds Base and satisfies the Item interface.
package item

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies which worker a work item is routed to.
type Kind string

const (
	KindFetch      Kind = "fetch"
	KindSubprocess Kind = "subprocess"
	KindTimer      Kind = "timer"
	KindWorkflow   Kind = "workflow"
)

// Item is anything that can be dispatched by the coordinator and completed
// by a worker. Concrete kinds carry their own request and result fields in
// addition to the Base they embed.
type Item interface {
	ID() string
	Kind() Kind
	Err() error
	SetErr(error)
	Done() bool
	SetDone(bool)
}

// Base is embedded by every concrete item kind. It carries the identity and
// completion bookkeeping the coordinator needs regardless of kind; it does
// not know anything about the request or result payload a kind carries.
type Base struct {
	id        string
	kind      Kind
	err       error
	done      bool
	CreatedAt time.Time
}

// NewBase stamps a fresh item identity. IDs are UUIDv7 so the pending map
// can key on an explicit, monotonically-increasing identity rather than
// object pointer equality.
func NewBase(kind Kind) Base {
	return Base{
		id:        uuid.Must(uuid.NewV7()).String(),
		kind:      kind,
		CreatedAt: time.Now(),
	}
}

func (b *Base) ID() string     { return b.id }
func (b *Base) Kind() Kind     { return b.kind }
func (b *Base) Err() error     { return b.err }
func (b *Base) SetErr(e error) { b.err = e }
func (b *Base) Done() bool     { return b.done }
func (b *Base) SetDone(d bool) { b.done = d }

// Yielded is what a workflow body hands to the driver when it suspends: one
// or more items to dispatch, joined by a single barrier. A single yielded
// item and a batch of yielded items both flow through this same shape —
// Items has length 1 in the single case — so the driver and barrier never
// need to special-case "one versus many".
type Yielded struct {
	Items []Item
}

// One wraps a single item as a one-element Yielded batch.
func One(it Item) Yielded {
	return Yielded{Items: []Item{it}}
}

// Many wraps a slice of items as a Yielded batch.
func Many(items []Item) Yielded {
	return Yielded{Items: items}
}
