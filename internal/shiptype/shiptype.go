// Package shiptype maps EVE ship type ids to hull classes and fleet roles.
package shiptype

import (
	"golang.org/x/exp/slices"
)

// Class is a coarse hull size bucket.
type Class string

const (
	ClassFrigate       Class = "frigate"
	ClassDestroyer     Class = "destroyer"
	ClassCruiser       Class = "cruiser"
	ClassBattlecruiser Class = "battlecruiser"
	ClassBattleship    Class = "battleship"
	ClassCapital       Class = "capital"
	ClassSupercapital  Class = "supercapital"
	ClassIndustrial    Class = "industrial"
	ClassCapsule       Class = "capsule"
	ClassStructure     Class = "structure"
	ClassUnknown       Class = "unknown"
)

// IsCapital reports whether the class is a capital or supercapital hull.
func (c Class) IsCapital() bool {
	return c == ClassCapital || c == ClassSupercapital
}

// Role is the job a hull usually does in a fleet.
type Role string

const (
	RoleDPS            Role = "dps"
	RoleLogistics      Role = "logistics"
	RoleEWAR           Role = "ewar"
	RoleTackle         Role = "tackle"
	RoleCommand        Role = "command"
	RoleCapitalSupport Role = "capital_support"
)

// Roles lists every role in display order.
var Roles = []Role{RoleDPS, RoleLogistics, RoleEWAR, RoleTackle, RoleCommand, RoleCapitalSupport}

// Taxonomy resolves ship type ids.
type Taxonomy interface {
	ShipClass(typeID int64) Class
	ShipRole(typeID int64) Role
}

type hull struct {
	class Class
	role  Role
}

type idRange struct {
	lo, hi int64
	class  Class
}

// Static is a lookup over a fixed table: exact hulls first, then id ranges.
type Static struct {
	hulls  map[int64]hull
	ranges []idRange // sorted by lo, non-overlapping
}

// NewStatic builds the default table.
func NewStatic() *Static {
	s := &Static{
		hulls:  make(map[int64]hull, len(knownHulls)),
		ranges: append([]idRange(nil), classRanges...),
	}
	for id, h := range knownHulls {
		s.hulls[id] = h
	}
	slices.SortFunc(s.ranges, func(a, b idRange) int { return compare(a.lo, b.lo) })
	return s
}

// ShipClass returns the hull class, ClassUnknown when the id is not covered.
func (s *Static) ShipClass(typeID int64) Class {
	if h, ok := s.hulls[typeID]; ok {
		return h.class
	}
	i, _ := slices.BinarySearchFunc(s.ranges, typeID, func(r idRange, id int64) int { return compare(r.hi, id) })
	if i < len(s.ranges) && s.ranges[i].lo <= typeID {
		return s.ranges[i].class
	}
	return ClassUnknown
}

// ShipRole returns the fleet role. Hulls without a dedicated role are
// inferred from their class.
func (s *Static) ShipRole(typeID int64) Role {
	if h, ok := s.hulls[typeID]; ok && h.role != "" {
		return h.role
	}
	return roleForClass(s.ShipClass(typeID))
}

func roleForClass(c Class) Role {
	switch c {
	case ClassFrigate:
		return RoleTackle
	case ClassCapital, ClassSupercapital:
		return RoleCapitalSupport
	default:
		return RoleDPS
	}
}

func compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
