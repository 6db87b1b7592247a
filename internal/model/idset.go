package model

import (
	"encoding/json"
	"slices"
)

// IDSet is an unordered set of entity ids.
//
// The zero value is an empty set ready for reads; use NewIDSet or Add on a
// non-nil set for writes.
type IDSet map[int64]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into the set.
func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

// Remove deletes id from the set. Removing an absent id is a no-op.
func (s IDSet) Remove(id int64) {
	delete(s, id)
}

// Has reports whether id is a member of the set.
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s IDSet) Len() int {
	return len(s)
}

// SubsetOf reports whether every member of s is also in other.
// The empty set is a subset of every set.
func (s IDSet) SubsetOf(other IDSet) bool {
	if len(s) > len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Intersects reports whether s and other share at least one member.
func (s IDSet) Intersects(other IDSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if large.Has(id) {
			return true
		}
	}
	return false
}

// Equal reports whether s and other hold the same members.
func (s IDSet) Equal(other IDSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

// Union returns a new set holding the members of s and other.
func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Clone returns an independent copy of s.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order.
// Always returns a non-nil slice.
func (s IDSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON array of ids.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
