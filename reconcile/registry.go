package reconcile

import (
	"sort"
	"strings"
	"sync"
)

// Subscription scopes. Everything under ScopeView belongs to the view on
// screen and goes away when the view changes.
const (
	ScopeGlobal   = "global"
	ScopeView     = "view/"
	ScopeTeam     = "view/team"
	ScopeTasks    = "view/tasks"
	ScopeProgress = "view/progress/"
	ScopeDetails  = "view/details"
)

func progressScope(taskID string) string {
	return ScopeProgress + taskID
}

// Canceler is anything that can be stopped, typically a live subscription.
type Canceler interface {
	Cancel()
}

// Registry tracks live subscriptions by scope so a whole scope can be torn
// down at once.
type Registry struct {
	mu     sync.Mutex
	scopes map[string][]Canceler
}

func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string][]Canceler)}
}

func (r *Registry) Add(scope string, c Canceler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes[scope] = append(r.scopes[scope], c)
}

// Cancel stops every subscription registered under exactly scope.
func (r *Registry) Cancel(scope string) {
	r.mu.Lock()
	cs := r.scopes[scope]
	delete(r.scopes, scope)
	r.mu.Unlock()
	cancelAll(cs)
}

// CancelPrefix stops every scope that starts with prefix.
func (r *Registry) CancelPrefix(prefix string) {
	r.mu.Lock()
	var cs []Canceler
	for scope, list := range r.scopes {
		if strings.HasPrefix(scope, prefix) {
			cs = append(cs, list...)
			delete(r.scopes, scope)
		}
	}
	r.mu.Unlock()
	cancelAll(cs)
}

func (r *Registry) CancelAll() {
	r.CancelPrefix("")
}

// Len is the number of subscriptions in scope.
func (r *Registry) Len(scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes[scope])
}

// Scopes lists the scopes holding at least one subscription, sorted.
func (r *Registry) Scopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.scopes))
	for scope, list := range r.scopes {
		if len(list) > 0 {
			out = append(out, scope)
		}
	}
	sort.Strings(out)
	return out
}

func cancelAll(cs []Canceler) {
	for _, c := range cs {
		c.Cancel()
	}
}
