package policy

import (
	"fmt"
	"testing"

	"github.com/booklend/apiserver/types"
	"github.com/stretchr/testify/require"
)

const ownerUserID = "owner-id"

var callers = []struct {
	name     string
	identity *types.Identity
}{
	{name: "anonymous", identity: nil},
	{name: "other", identity: &types.Identity{ID: "other-id"}},
	{name: "owner", identity: &types.Identity{ID: ownerUserID}},
	{name: "superuser", identity: &types.Identity{ID: "admin-id", IsSuperuser: true}},
}

var actions = []struct {
	name   string
	action Action
}{
	{name: "read", action: ActionRead},
	{name: "create", action: ActionCreate},
	{name: "update", action: ActionUpdate},
	{name: "delete", action: ActionDelete},
}

var kinds = []struct {
	name     string
	resource Resource
}{
	{name: "catalog", resource: Resource{Kind: KindCatalog}},
	{name: "user", resource: Resource{Kind: KindUser, OwnerID: ownerUserID}},
	{name: "rental", resource: Resource{Kind: KindRental, OwnerID: ownerUserID}},
}

// expected restates the access rules independently of Allow's control flow:
// the catalog is world-readable and superuser-writable; user reads and
// self-registration are open; rentals require authentication, any
// authenticated user may create one; everything else is owner-or-superuser.
func expected(identity *types.Identity, action Action, resource Resource) bool {
	isSuperuser := identity != nil && identity.IsSuperuser
	isOwner := identity != nil && identity.ID == resource.OwnerID

	switch resource.Kind {
	case KindCatalog:
		return action == ActionRead || isSuperuser
	case KindUser:
		return action == ActionRead || action == ActionCreate || isOwner || isSuperuser
	case KindRental:
		if identity == nil {
			return false
		}
		return action == ActionCreate || isOwner || isSuperuser
	}
	return false
}

func TestAllow(t *testing.T) {
	t.Parallel()

	// Every caller x action x kind combination.
	for _, caller := range callers {
		for _, action := range actions {
			for _, kind := range kinds {
				caller, action, kind := caller, action, kind
				name := fmt.Sprintf("%s %ss %s", caller.name, action.name, kind.name)
				t.Run(name, func(t *testing.T) {
					t.Parallel()
					want := expected(caller.identity, action.action, kind.resource)
					require.Equal(t, want, Allow(caller.identity, action.action, kind.resource))
				})
			}
		}
	}
}

func TestAllowEmptyOwner(t *testing.T) {
	t.Parallel()

	// An identity with an empty id must never match a record with an empty
	// owner id.
	identity := &types.Identity{ID: ""}
	require.False(t, Allow(identity, ActionUpdate, Resource{Kind: KindRental, OwnerID: ""}))
	require.False(t, Allow(identity, ActionDelete, Resource{Kind: KindUser, OwnerID: ""}))
}
