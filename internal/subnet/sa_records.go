// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package subnet

import (
	"fmt"

	"github.com/ibfabric/osmd/internal/ibtype"
)

// ServiceRecord is a registered service, grounded on
// original_source/opensm/osm_sa_service_record.c. Lease is the deadline
// (unix nanos) at which the record expires; zero means infinite.
type ServiceRecord struct {
	RID          string // ServiceID|ServiceGID|ServiceP_Key, hex-joined
	ServiceID    uint64
	ServiceGID   [16]byte
	ServicePKey  ibtype.PKey
	ServiceLease uint32 // seconds; 0xFFFFFFFF == infinite
	ServiceKey   [16]byte
	ServiceName  string
	ServiceData8 [16]byte
	ServiceData16 [8]uint16
	ServiceData32 [4]uint32
	ServiceData64 [2]uint64
	ExpiresAtNanos int64
}

// RID computes the record identifier used for Set/Delete matching.
func ServiceRID(serviceID uint64, gid [16]byte, pkey ibtype.PKey) string {
	return fmt.Sprintf("%016x:%x:%04x", serviceID, gid, uint16(pkey))
}

// InformRecord is a subscription, grounded on
// original_source/opensm/osm_sa_informinfo.c.
type InformRecord struct {
	RID              string // SubscriberGID|InformInfo, for Set/Delete matching
	SubscriberGID    [16]byte
	SubscriberEnumeration uint16
	IsGeneric        bool
	Subscribe        bool
	TrapType         uint16 // GID-or-LID-range flag plus generic/vendor, per wire layout
	LIDRangeBegin    ibtype.LID
	LIDRangeEnd      ibtype.LID
	TrapNumOrDeviceID uint16 // 0xFFFF == wildcard
	QPN              uint32
	RespTimeValue    uint8
	ProducerTypeOrVendorID uint32 // 0xFFFFFF == wildcard

	ReturnGID   [16]byte // where forwarded Reports are addressed
	ReturnLID   ibtype.LID
}

func InformRID(subscriberGID [16]byte, enumeration uint16) string {
	return fmt.Sprintf("%x:%04x", subscriberGID, enumeration)
}

func (s *Subnet) UpsertService(r *ServiceRecord) { s.services[r.RID] = r }
func (s *Subnet) DeleteService(rid string)       { delete(s.services, rid) }
func (s *Subnet) Service(rid string) (*ServiceRecord, bool) {
	r, ok := s.services[rid]
	return r, ok
}
func (s *Subnet) Services() []*ServiceRecord {
	out := make([]*ServiceRecord, 0, len(s.services))
	for _, r := range s.services {
		out = append(out, r)
	}
	return out
}

func (s *Subnet) UpsertInform(r *InformRecord) { s.informs[r.RID] = r }
func (s *Subnet) DeleteInform(rid string)      { delete(s.informs, rid) }
func (s *Subnet) Inform(rid string) (*InformRecord, bool) {
	r, ok := s.informs[rid]
	return r, ok
}
func (s *Subnet) Informs() []*InformRecord {
	out := make([]*InformRecord, 0, len(s.informs))
	for _, r := range s.informs {
		out = append(out, r)
	}
	return out
}
