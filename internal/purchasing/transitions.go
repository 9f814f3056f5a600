package purchasing

// allowedTransitions is the lifecycle adjacency table. Completed orders may
// still be voided, which reverses their actuals; a rejected order goes back
// to draft for edits before it can be submitted again.
var allowedTransitions = map[Status][]Status{
	StatusDraft:     {StatusPending, StatusCancelled},
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCompleted, StatusCancelled},
	StatusRejected:  {StatusDraft, StatusCancelled},
	StatusCompleted: {StatusCancelled},
	StatusCancelled: nil,
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
