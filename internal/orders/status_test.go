package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition(t *testing.T) {
	const ownerID int64 = 1
	owner := Principal{ID: ownerID, Role: RoleUser}
	admin := Principal{ID: 99, Role: RoleAdmin}
	stranger := Principal{ID: 2, Role: RoleUser}

	tests := []struct {
		name      string
		requester Principal
		from, to  Status
		wantErr   any // nil, *ForbiddenError or *ValidationError
	}{
		{"owner completes pending", owner, StatusPending, StatusCompleted, nil},
		{"owner cancels pending", owner, StatusPending, StatusCancelled, nil},
		{"owner cannot reset to pending", owner, StatusPending, StatusPending, &ForbiddenError{}},
		{"owner cannot reopen completed", owner, StatusCompleted, StatusPending, &ForbiddenError{}},
		{"admin completes pending", admin, StatusPending, StatusCompleted, nil},
		{"admin cancels pending", admin, StatusPending, StatusCancelled, nil},
		{"admin may keep pending", admin, StatusPending, StatusPending, nil},
		{"admin cannot reopen completed", admin, StatusCompleted, StatusPending, &ForbiddenError{}},
		{"admin cannot revive cancelled", admin, StatusCancelled, StatusCompleted, &ForbiddenError{}},
		{"stranger cannot cancel", stranger, StatusPending, StatusCancelled, &ForbiddenError{}},
		{"stranger cannot complete", stranger, StatusPending, StatusCompleted, &ForbiddenError{}},
		{"single-l spelling rejected", owner, StatusPending, Status("canceled"), &ValidationError{}},
		{"unknown status rejected", admin, StatusPending, Status("shipped"), &ValidationError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.requester, ownerID, tt.from, tt.to)
			switch want := tt.wantErr.(type) {
			case nil:
				assert.NoError(t, err)
			case *ForbiddenError:
				fe := want
				require.ErrorAs(t, err, &fe)
			case *ValidationError:
				ve := want
				require.ErrorAs(t, err, &ve)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("canceled").Valid())
	assert.False(t, Status("").Valid())
}
