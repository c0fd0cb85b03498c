package engine

import "sync"

// Outcome is the completion result of a posted operation.
type Outcome struct {
	Succeeded bool
	Value     any
}

// Success returns a succeeded outcome carrying value.
func Success(value any) Outcome {
	return Outcome{Succeeded: true, Value: value}
}

// Failure returns a failed outcome.
func Failure() Outcome {
	return Outcome{}
}

// Pending represents an in-flight operation posted against a controller.
// It resolves exactly once; Wait blocks the calling goroutine until then
// and may be called any number of times.
type Pending struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// NewPending creates an unresolved Pending.
func NewPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Resolved creates a Pending that is already complete with the given
// outcome. Used for operations that fail before reaching a queue.
func Resolved(o Outcome) *Pending {
	p := NewPending()
	p.Resolve(o)
	return p
}

// Resolve completes the operation. Later calls are no-ops.
func (p *Pending) Resolve(o Outcome) {
	p.once.Do(func() {
		p.outcome = o
		close(p.done)
	})
}

// Wait blocks until the operation completes and returns its outcome.
func (p *Pending) Wait() Outcome {
	<-p.done
	return p.outcome
}
