// Package channel routes named method calls from an embedded UI to
// registered handlers and returns a success value or a structured failure.
package channel

import (
	"context"
	"fmt"
	"sort"
)

// Dispatcher looks up and invokes handlers. Its handler table is a read-only
// snapshot, so Dispatch is safe for concurrent use without locking.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

// NewDispatcher snapshots reg. A nil registry yields a dispatcher that
// answers every call with not_implemented.
func NewDispatcher(reg *Registry) *Dispatcher {
	if reg == nil {
		return &Dispatcher{handlers: map[string]HandlerFunc{}}
	}
	return &Dispatcher{handlers: reg.snapshot()}
}

// Methods lists the methods this dispatcher answers.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch routes call to its handler. Handler errors are returned verbatim;
// a handler panic becomes a handler_panic failure.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Result {
	if call.Method == "" {
		return Failure(CodeInvalidRequest, "method name required", nil)
	}
	handler, ok := d.handlers[call.Method]
	if !ok {
		return Failure(CodeNotImplemented, "No handler registered for "+call.Method, nil)
	}
	return invoke(ctx, handler, call)
}

func invoke(ctx context.Context, handler HandlerFunc, call Call) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Failure(CodeHandlerPanic, fmt.Sprintf("handler for %s panicked: %v", call.Method, p), nil)
		}
	}()
	value, err := handler(ctx, call.Arguments)
	if err != nil {
		return Result{Err: err}
	}
	return Success(value)
}
