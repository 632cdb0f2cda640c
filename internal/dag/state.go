package dag

import (
	"sync"
	"time"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/tool"
)

// NodeStatus represents the execution status of a graph node.
// Only the scheduler mutates node statuses.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// IsTerminal returns true if the status is completed, failed, or skipped.
func (s NodeStatus) IsTerminal() bool {
	switch s {
	case NodeStatusCompleted, NodeStatusFailed, NodeStatusSkipped:
		return true
	default:
		return false
	}
}

// nodeState tracks the runtime state of a single node.
type nodeState struct {
	status      NodeStatus
	startedAt   *time.Time
	completedAt *time.Time
}

// State manages the runtime execution state of a graph walk: per-node status,
// recorded results, and the set of currently held resource locks.
type State struct {
	mu        sync.RWMutex
	graph     *Graph
	nodes     map[string]*nodeState
	results   map[string]tool.Result
	heldLocks map[string]string // lock name -> holding node id
}

// NewState initializes all nodes to pending with no locks held.
func NewState(graph *Graph) *State {
	nodes := make(map[string]*nodeState, graph.Len())
	for id := range graph.Nodes {
		nodes[id] = &nodeState{status: NodeStatusPending}
	}
	return &State{
		graph:     graph,
		nodes:     nodes,
		results:   make(map[string]tool.Result),
		heldLocks: make(map[string]string),
	}
}

// ReadyNodes returns the nodes eligible to run right now: pending, all
// dependencies completed, and no resource lock intersecting the held set.
// The result is ordered by submission order.
func (s *State) ReadyNodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ready []*Node
	for _, id := range s.graph.Order {
		if s.isReadyLocked(id) {
			ready = append(ready, s.graph.Nodes[id])
		}
	}
	return ready
}

// TryAdmit atomically re-checks readiness and marks the node running,
// acquiring its resource locks. Returns false if the node is no longer ready,
// which happens when an earlier admission in the same pass took a shared lock.
func (s *State) TryAdmit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isReadyLocked(id) {
		return false
	}

	node := s.graph.Nodes[id]
	for _, lock := range node.ResourceLocks {
		s.heldLocks[lock] = id
	}

	now := time.Now()
	s.nodes[id].status = NodeStatusRunning
	s.nodes[id].startedAt = &now
	return true
}

// isReadyLocked must be called with the mutex held.
func (s *State) isReadyLocked(id string) bool {
	st, ok := s.nodes[id]
	if !ok || st.status != NodeStatusPending {
		return false
	}

	node := s.graph.Nodes[id]
	for dep := range node.Deps {
		if s.nodes[dep].status != NodeStatusCompleted {
			return false
		}
	}
	for _, lock := range node.ResourceLocks {
		if _, held := s.heldLocks[lock]; held {
			return false
		}
	}
	return true
}

// MarkCompleted records a successful result and releases the node's locks.
func (s *State) MarkCompleted(id string, result tool.Result) {
	s.settle(id, NodeStatusCompleted, result)
}

// MarkFailed records a failed result and releases the node's locks.
func (s *State) MarkFailed(id string, result tool.Result) {
	s.settle(id, NodeStatusFailed, result)
}

// MarkSkipped marks a node that will never start. Skipping a node that holds
// no locks releases nothing.
func (s *State) MarkSkipped(id string) {
	s.settle(id, NodeStatusSkipped, tool.Result{
		Success: false,
		Message: "step skipped",
	})
}

func (s *State) settle(id string, status NodeStatus, result tool.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.nodes[id]
	if !ok {
		return
	}

	node := s.graph.Nodes[id]
	for _, lock := range node.ResourceLocks {
		if s.heldLocks[lock] == id {
			delete(s.heldLocks, lock)
		}
	}

	now := time.Now()
	st.status = status
	st.completedAt = &now
	s.results[id] = result
}

// Status returns the current status of a node.
func (s *State) Status(id string) NodeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.nodes[id]; ok {
		return st.status
	}
	return ""
}

// Result returns the recorded result for a node, if it has settled.
func (s *State) Result(id string) (tool.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[id]
	return result, ok
}

// Results returns a copy of all recorded node results keyed by step id.
func (s *State) Results() map[string]tool.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]tool.Result, len(s.results))
	for id, result := range s.results {
		out[id] = result
	}
	return out
}

// PendingIDs returns the ids of nodes still pending, in submission order.
func (s *State) PendingIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []string
	for _, id := range s.graph.Order {
		if s.nodes[id].status == NodeStatusPending {
			pending = append(pending, id)
		}
	}
	return pending
}

// HeldLocks returns a copy of the currently held lock set.
func (s *State) HeldLocks() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.heldLocks))
	for lock, holder := range s.heldLocks {
		out[lock] = holder
	}
	return out
}

// CountByStatus tallies nodes per status.
func (s *State) CountByStatus() map[NodeStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[NodeStatus]int)
	for _, st := range s.nodes {
		counts[st.status]++
	}
	return counts
}

// AllTerminal reports whether every node has reached a terminal status.
func (s *State) AllTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.nodes {
		if !st.status.IsTerminal() {
			return false
		}
	}
	return true
}
