package service

// isOwner reports whether caller is the creator of a resource. Every task and
// submission mutation goes through this single predicate.
func isOwner(creatorID, callerID string) bool {
	return creatorID != "" && creatorID == callerID
}
