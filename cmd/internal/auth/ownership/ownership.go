// Package ownership decides whether an authenticated identity may mutate a resource.
package ownership

import (
	"errors"
	"reflect"
)

// ErrForbidden is returned when the actor is not the resource's owner.
var ErrForbidden = errors.New("forbidden: not the author")

// AuthorizeMutation permits a mutation only when actor equals owner.
//
// Equality is Go value equality on the identifier type, so numeric, string,
// array (ulid.ULID) and struct identifiers all compare by value, never by
// formatting or reference. When ID is an interface type holding values that
// == cannot compare (slices, maps), the values are compared deeply instead;
// AuthorizeMutation never panics.
func AuthorizeMutation[ID comparable](actor, owner ID) error {
	if !sameIdentity(actor, owner) {
		return ErrForbidden
	}
	return nil
}

func sameIdentity[ID comparable](a, b ID) (same bool) {
	defer func() {
		if recover() != nil {
			same = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
