// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package subnet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ibfabric/osmd/internal/ibtype"
)

// DumpLFT renders a switch's Linear Forwarding Table as opensm's console
// "dump lft" command would (original_source/opensm/osm_console.c), one
// "<lid> : <out_port>" line per occupied entry. Caller must hold RLock.
func (s *Subnet) DumpLFT(swID SwitchID) (string, error) {
	sw, ok := s.switches[swID]
	if !ok {
		return "", fmt.Errorf("no such switch id %d", swID)
	}
	var b strings.Builder
	n := s.nodes[sw.NodeID]
	fmt.Fprintf(&b, "Unicast LFT for switch 0x%016x (%s), top %d\n", uint64(n.GUID), n.Description, sw.MaxLID)
	for lid := ibtype.LIDUnicastMin; lid <= sw.MaxLID && int(lid) < len(sw.LFT); lid++ {
		pid := sw.LFT[lid]
		if pid == 0 {
			continue
		}
		p := s.physps[pid]
		fmt.Fprintf(&b, "0x%04x : %d\n", uint16(lid), p.PortNum)
	}
	return b.String(), nil
}

// DumpMCFDB renders every switch's Multicast Forwarding Table.
func (s *Subnet) DumpMCFDB() string {
	var b strings.Builder
	ids := make([]SwitchID, 0, len(s.switches))
	for id := range s.switches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sw := s.switches[id]
		n := s.nodes[sw.NodeID]
		fmt.Fprintf(&b, "Multicast FDB for switch 0x%016x (%s)\n", uint64(n.GUID), n.Description)
		mlids := make([]ibtype.LID, 0, len(sw.MFT))
		for mlid := range sw.MFT {
			mlids = append(mlids, mlid)
		}
		sort.Slice(mlids, func(i, j int) bool { return mlids[i] < mlids[j] })
		for _, mlid := range mlids {
			mask := sw.MFT[mlid]
			var ports []string
			for i, set := range mask {
				if set {
					ports = append(ports, fmt.Sprintf("%d", i))
				}
			}
			if len(ports) > 0 {
				fmt.Fprintf(&b, "0x%04x : %s\n", uint16(mlid), strings.Join(ports, ","))
			}
		}
	}
	return b.String()
}

// DumpSA renders the service and inform-info tables as a flat text dump,
// the same "SA DB dump" shape OpenSM's console offers.
func (s *Subnet) DumpSA() string {
	var b strings.Builder
	b.WriteString("# service records\n")
	for _, r := range s.Services() {
		fmt.Fprintf(&b, "service_id=%016x name=%q pkey=%04x lease=%d\n",
			r.ServiceID, r.ServiceName, uint16(r.ServicePKey), r.ServiceLease)
	}
	b.WriteString("# inform records\n")
	for _, r := range s.Informs() {
		fmt.Fprintf(&b, "subscriber=%x trap=%d lid_range=[0x%04x,0x%04x]\n",
			r.SubscriberGID, r.TrapNumOrDeviceID, uint16(r.LIDRangeBegin), uint16(r.LIDRangeEnd))
	}
	return b.String()
}

// NodeNameMap renders "<GUID-hex> <description>" lines, one per node,
// the node-name map file format ibnetdiscover/opensm consume.
func (s *Subnet) NodeNameMap() string {
	var b strings.Builder
	nodes := s.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].GUID < nodes[j].GUID })
	for _, n := range nodes {
		fmt.Fprintf(&b, "%s %q\n", n.GUID, n.Description)
	}
	return b.String()
}

// DumpMinHop renders every switch's min-hop matrix, one matrix per switch.
func (s *Subnet) DumpMinHop() string {
	var b strings.Builder
	ids := make([]SwitchID, 0, len(s.switches))
	for id := range s.switches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sw := s.switches[id]
		n := s.nodes[sw.NodeID]
		fmt.Fprintf(&b, "Min-hop table for switch 0x%016x\n", uint64(n.GUID))
		lids := make([]ibtype.LID, 0, len(sw.MinHop))
		for lid := range sw.MinHop {
			lids = append(lids, lid)
		}
		sort.Slice(lids, func(i, j int) bool { return lids[i] < lids[j] })
		for _, lid := range lids {
			fmt.Fprintf(&b, "0x%04x :", uint16(lid))
			for _, h := range sw.MinHop[lid] {
				fmt.Fprintf(&b, " %d", h)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
