// Package policy holds the pure authorization rules. Decisions depend only
// on the caller's identity, the attempted action, and the target resource;
// no I/O happens here.
package policy

import "github.com/booklend/apiserver/types"

// Action is the operation being attempted on a resource.
type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

// Kind classifies the target resource.
type Kind int

const (
	// KindCatalog covers books, authors and libraries: world-readable,
	// superuser-writable.
	KindCatalog Kind = iota
	// KindUser covers user accounts: open read and self-registration,
	// owner-or-superuser mutation.
	KindUser
	// KindRental covers rentals: owner-or-superuser throughout.
	KindRental
)

// Resource identifies the target of a request. OwnerID is the id of the user
// who owns the record: the user's own id for KindUser, the renting user's id
// for KindRental. It is ignored for KindCatalog.
type Resource struct {
	Kind    Kind
	OwnerID string
}

// Allow reports whether the identity may perform the action on the resource.
// A nil identity is an anonymous caller.
func Allow(identity *types.Identity, action Action, resource Resource) bool {
	switch resource.Kind {
	case KindCatalog:
		if action == ActionRead {
			return true
		}
		return identity != nil && identity.IsSuperuser

	case KindUser:
		// Reads and self-registration are open.
		if action == ActionRead || action == ActionCreate {
			return true
		}
		return isOwnerOrSuperuser(identity, resource.OwnerID)

	case KindRental:
		if identity == nil {
			return false
		}
		if action == ActionCreate {
			// Any authenticated user may check out a book; the renting
			// user is always the caller regardless of the request body.
			return true
		}
		return isOwnerOrSuperuser(identity, resource.OwnerID)

	default:
		return false
	}
}

func isOwnerOrSuperuser(identity *types.Identity, ownerID string) bool {
	if identity == nil {
		return false
	}
	if identity.IsSuperuser {
		return true
	}
	return ownerID != "" && identity.ID == ownerID
}
