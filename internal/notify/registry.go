// Package notify delivers short completion messages to chat targets such as
// "telegram:<chat-id>".
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Handler delivers a message to target.
type Handler func(ctx context.Context, target, message string) error

// Registry routes messages to the appropriate handler based on target
// prefix (e.g. "telegram:").
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	retry    *RetryPolicy
}

// NewRegistry creates an empty registry. A nil policy delivers once.
func NewRegistry(retry *RetryPolicy) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		retry:    retry,
	}
}

// Register adds a handler for targets starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Deliver finds the handler whose prefix matches target and calls it,
// retrying transient failures according to the registry's policy.
func (r *Registry) Deliver(ctx context.Context, target, message string) error {
	handler, ok := r.lookup(target)
	if !ok {
		return fmt.Errorf("no notifier for target: %s", target)
	}
	if r.retry == nil {
		return handler(ctx, target, message)
	}
	return r.retry.Execute(ctx, func() error {
		return handler(ctx, target, message)
	})
}

func (r *Registry) lookup(target string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best    Handler
		bestLen = -1
	)
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(target, prefix) && len(prefix) > bestLen {
			best, bestLen = handler, len(prefix)
		}
	}
	return best, best != nil
}
