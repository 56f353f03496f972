package booking

// Access is the outcome of a capability check.
type Access int

const (
	// Authorized means the actor may mutate the resource.
	Authorized Access = iota
	// NotFound means the resource does not exist.
	NotFound
	// Forbidden means the resource exists but belongs to someone else.
	Forbidden
)

func (a Access) String() string {
	switch a {
	case Authorized:
		return "authorized"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// CheckOwner decides whether actor may mutate a resource owned by owner.
// exists is false when the resource could not be loaded.
func CheckOwner(actor uint64, owner uint64, exists bool) Access {
	if !exists {
		return NotFound
	}
	if actor == 0 || actor != owner {
		return Forbidden
	}
	return Authorized
}

// Collapse folds Forbidden into NotFound so callers cannot test for the
// existence of resources they do not own.
func (a Access) Collapse() Access {
	if a == Forbidden {
		return NotFound
	}
	return a
}
