// Package tools implements the canonical tool registry (§6.2): the named
// functions procedures reference by string name, each with a declared
// param schema the core dispatches against.
package tools

import (
	"context"
	"sync"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
)

// Canonical tool names the core must know the shapes of, because
// procedures reference them and the form engine calls them (§6.2).
const (
	WebGetDOM        = "web.get_dom"
	WebScreenshot    = "web.screenshot"
	WebFill          = "web.fill"
	WebClickSelector = "web.click_selector"
	WebWaitFor       = "web.wait_for"
	FormAutofill     = "form.autofill"
	MemoryRemember   = "memory.remember"
	MemoryRecall     = "memory.recall"
	ProcedureCreate  = "procedure.create"
	ProcedureSearch  = "procedure.search"
	ProcedureRun     = "procedure.run"
	DAGExecute       = "dag.execute"
	QueueEnqueue     = "queue.enqueue"
	QueueUpdate      = "queue.update"
)

// Params is the generic param bag every tool call receives and returns a
// result in.
type Params map[string]interface{}

// Descriptor declares a tool's name and the params it requires, used by
// internal/procedure.Validate to check for missing required params at
// plan-validation time.
type Descriptor struct {
	Name           string
	RequiredParams []string
	Invoke         func(ctx context.Context, params Params) (Params, error)
}

// Registry dispatches tool calls by string name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Descriptor
}

// NewRegistry builds an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Descriptor)}
}

// Register adds or replaces a tool descriptor.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.Name] = d
}

// Lookup returns a tool's descriptor, used by internal/procedure.Validate
// as a ToolSchemaLookup.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// Invoke dispatches a call to the named tool. An unregistered name produces
// an UnknownTool error — surfaced as InvalidInput — that the adaptation
// loop may repair by substituting a different tool (§6.2).
func (r *Registry) Invoke(ctx context.Context, name string, params Params) (Params, error) {
	r.mu.RLock()
	d, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, agenterrors.InvalidInput("unknown tool: " + name)
	}

	result, err := d.Invoke(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, agenterrors.Timeout(name)
		}
		return nil, agenterrors.ToolErr(name, err)
	}
	return result, nil
}
