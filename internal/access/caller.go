// Package access turns a caller identity into the query scope it is entitled to.
package access

import "slices"

// Capability is a permission granted to a caller identity.
type Capability string

// CapabilityAdmin unlocks publish, delete, restore and the deleted view.
const CapabilityAdmin Capability = "admin"

// Caller is the identity an operation runs on behalf of. The zero value is anonymous.
type Caller struct {
	ID           string
	Capabilities []Capability
}

// Anonymous returns the unauthenticated caller.
func Anonymous() Caller { return Caller{} }

// IsAnonymous reports whether no identity was established.
func (c Caller) IsAnonymous() bool { return c.ID == "" }

// Has reports whether the caller holds capability cp.
func (c Caller) Has(cp Capability) bool {
	return !c.IsAnonymous() && slices.Contains(c.Capabilities, cp)
}

// IsAdmin reports whether the caller holds the administrator capability.
func (c Caller) IsAdmin() bool { return c.Has(CapabilityAdmin) }

// CanModify reports whether the caller may change a record owned by ownerID.
func (c Caller) CanModify(ownerID string) bool {
	return c.IsAdmin() || (!c.IsAnonymous() && c.ID == ownerID)
}
