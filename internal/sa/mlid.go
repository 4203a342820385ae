// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

// MLIDAllocator hands out multicast LIDs from
// [ibtype.LIDMulticastMin, ibtype.LIDMulticastMax] for MCMember.Set's
// nextMLID argument, skipping any LID still in use by a live group and
// wrapping back to the bottom of the range once it runs off the top.
// Callers must hold the subnet writer lock across a Next call, the same
// discipline MCMember.Set itself requires.
type MLIDAllocator struct {
	Subnet *subnet.Subnet
	next   ibtype.LID
}

// NewMLIDAllocator returns an allocator starting at the bottom of the
// multicast LID range.
func NewMLIDAllocator(sn *subnet.Subnet) *MLIDAllocator {
	return &MLIDAllocator{Subnet: sn, next: ibtype.LIDMulticastMin}
}

// Next returns the next free multicast LID, or 0 if the entire range is
// already assigned to live groups.
func (a *MLIDAllocator) Next() ibtype.LID {
	span := int(ibtype.LIDMulticastMax-ibtype.LIDMulticastMin) + 1
	for i := 0; i < span; i++ {
		candidate := a.next
		a.advance()
		if _, exists := a.Subnet.MCGroupByMLID(candidate); !exists {
			return candidate
		}
	}
	return 0
}

func (a *MLIDAllocator) advance() {
	if a.next == ibtype.LIDMulticastMax {
		a.next = ibtype.LIDMulticastMin
		return
	}
	a.next++
}
