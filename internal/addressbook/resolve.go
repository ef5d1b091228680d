package addressbook

import (
	"strconv"

	"github.com/huonghan/storefront/internal/identity"
)

// Resolution says how an address key was matched.
type Resolution int

const (
	NotFound Resolution = iota
	ByID
	ByIndex
)

func (r Resolution) String() string {
	switch r {
	case ByID:
		return "id"
	case ByIndex:
		return "index"
	default:
		return "not_found"
	}
}

// Ref locates an address inside a user's collection. Index is only
// meaningful when By is not NotFound.
type Ref struct {
	Index int
	By    Resolution
}

// Found reports whether the key resolved.
func (r Ref) Found() bool { return r.By != NotFound }

// Resolve finds the address named by key. Stable ids win; otherwise key is
// read as a zero-based position, which is how addresses without an id are
// addressed. Positions shift when an earlier address is deleted.
func Resolve(addresses []identity.Address, key string) Ref {
	if key == "" {
		return Ref{Index: -1, By: NotFound}
	}
	for i := range addresses {
		if addresses[i].ID != "" && addresses[i].ID == key {
			return Ref{Index: i, By: ByID}
		}
	}
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx >= len(addresses) {
		return Ref{Index: -1, By: NotFound}
	}
	return Ref{Index: idx, By: ByIndex}
}
