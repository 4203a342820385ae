// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import (
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

// Scope restricts SA results to what the requester's P_Key membership
// allows to see: a requester may only learn about paths, services, and
// multicast groups that share a partition with it.
type Scope struct {
	Subnet      *subnet.Subnet
	RequesterGUID ibtype.GUID
}

func (s Scope) sharesPartition(otherGUID ibtype.GUID) bool {
	if s.Subnet == nil {
		return true
	}
	return s.Subnet.SharesPKey(s.RequesterGUID, otherGUID)
}

// AllowsPath reports whether a PathRecord between src and dst may be
// disclosed to the requester.
func (s Scope) AllowsPath(srcGUID, dstGUID ibtype.GUID) bool {
	return s.sharesPartition(srcGUID) && s.sharesPartition(dstGUID)
}

// AllowsService reports whether a ServiceRecord may be disclosed.
func (s Scope) AllowsService(svc *subnet.ServiceRecord) bool {
	if s.Subnet == nil {
		return true
	}
	pkeys := s.Subnet.PKeysForGUID(s.RequesterGUID)
	for _, pk := range pkeys {
		if pk.SharesPartition(svc.ServicePKey) {
			return true
		}
	}
	return false
}

// AllowsMCMember reports whether a multicast group's PKey is visible to
// the requester.
func (s Scope) AllowsMCMember(pkey ibtype.PKey) bool {
	if s.Subnet == nil {
		return true
	}
	for _, pk := range s.Subnet.PKeysForGUID(s.RequesterGUID) {
		if pk.SharesPartition(pkey) {
			return true
		}
	}
	return false
}
