package service

// AssertOwner allows a mutation only when the acting user authored the
// resource.  It has no side effects and must run before any write.
func AssertOwner(resourceAuthorID, actingUserID uint64) error {
	if resourceAuthorID != actingUserID {
		return ErrForbidden
	}
	return nil
}

// AssertNotOwner is the inverse check used for votes: an author can never vote
// on their own quote.
func AssertNotOwner(resourceAuthorID, actingUserID uint64) error {
	if resourceAuthorID == actingUserID {
		return ErrSelfVote
	}
	return nil
}
