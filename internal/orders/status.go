package orders

import "fmt"

type Status string

// Canonical spelling is "cancelled"; the single-l variant seen in old clients
// is rejected like any other unknown token.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPending: true, StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal states admit no further transitions, for any requester.
func (s Status) Terminal() bool { return len(validNext[s]) == 0 }

// CheckTransition decides whether requester may move an order owned by
// ownerID from one status to another. Admins may pick any reachable target,
// owners only completed or cancelled, everyone else is refused the same way
// an owner mismatch is.
func CheckTransition(requester Principal, ownerID int64, from, to Status) error {
	if !to.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("unknown status %q", string(to))}
	}
	if !validNext[from][to] {
		return &ForbiddenError{Msg: fmt.Sprintf("order is %s and cannot change to %s", from, to)}
	}
	if requester.IsAdmin() {
		return nil
	}
	if requester.ID == ownerID {
		if to == StatusCompleted || to == StatusCancelled {
			return nil
		}
		return &ForbiddenError{Msg: "you are only allowed to cancel or complete your order"}
	}
	return &ForbiddenError{Msg: "you are not authorized to update this order"}
}
