package access

import (
	"strings"

	"pmapi/internal/repository"
)

// View is the delete-state view a caller asks for.
type View string

const (
	ViewActive  View = "active"
	ViewDeleted View = "deleted"
	ViewAll     View = "all"
)

// Resolve builds the scope caller may read with. Only administrators get the
// requested view; everyone else is pinned to active records. Anonymous callers
// are restricted to published records. Resolve never fails: a scope that
// matches nothing simply yields no rows.
func Resolve(caller Caller, view View, search string) repository.Scope {
	scope := repository.Scope{
		View:   repository.ViewActive,
		Search: strings.TrimSpace(search),
	}

	switch {
	case caller.IsAnonymous():
		scope.Mode = repository.ModePublic
	case caller.IsAdmin():
		scope.Mode = repository.ModeUnrestricted
		scope.View = repoView(view)
	default:
		scope.Mode = repository.ModeOwner
		scope.OwnerID = caller.ID
	}
	return scope
}

// Public is the scope of the anonymous published listing, whoever calls it.
func Public(search string) repository.Scope {
	return Resolve(Anonymous(), ViewActive, search)
}

func repoView(v View) repository.View {
	switch v {
	case ViewDeleted:
		return repository.ViewDeleted
	case ViewAll:
		return repository.ViewAll
	default:
		return repository.ViewActive
	}
}
