package dag

// OpKind classifies a step by its effect on the shared timeline document.
type OpKind string

const (
	// OpRead inspects the document without mutating it. Sibling reads
	// between two writes may run concurrently.
	OpRead OpKind = "read"

	// OpWrite mutates the document. Writes are totally ordered against
	// everything declared before them.
	OpWrite OpKind = "write"
)

// Step is a single named tool invocation within a plan.
type Step struct {
	// ID uniquely identifies the step within its plan.
	ID string `json:"id"`

	// Tool names the capability to execute.
	Tool string `json:"tool"`

	// Args is the opaque argument map passed to the tool.
	Args map[string]any `json:"args,omitempty"`

	// Op classifies the step as read or write. An empty kind is treated as
	// write, the conservative choice for an unclassified mutation.
	Op OpKind `json:"op,omitempty"`

	// DependsOn lists explicit dependency step ids, unioned with inferred edges.
	DependsOn []string `json:"depends_on,omitempty"`

	// ResourceLocks lists named tokens; two steps sharing a token never run
	// concurrently.
	ResourceLocks []string `json:"resource_locks,omitempty"`

	// RequiresConfirmation gates the step behind an explicit confirmation in
	// interactive mode.
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`
}

// Kind returns the effective operation kind, defaulting to write.
func (s Step) Kind() OpKind {
	if s.Op == OpRead {
		return OpRead
	}
	return OpWrite
}
