package domain

// ChangeKind names the mutation behind a change notification.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeUploaded
	ChangeUpdated
	ChangeRemoved
	ChangeReindexed
)

// String returns the lower-case name of the kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeUploaded:
		return "uploaded"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	case ChangeReindexed:
		return "reindexed"
	default:
		return "unknown"
	}
}

// Change is published after a mutation succeeds. Source is the parsed
// response when the backend echoed one.
type Change struct {
	Kind     ChangeKind
	SourceID string
	Source   *Source
}
