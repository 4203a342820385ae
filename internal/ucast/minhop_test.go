// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ucast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

// buildTwoSwitchFabric builds a small two-switch fabric: two switches SwA
// and SwB linked port3-port3, with H1 on SwA port1 (LID 1) and H2 on SwB
// port1 (LID 2).
func buildTwoSwitchFabric(t *testing.T) (*subnet.Subnet, *subnet.Switch, *subnet.Switch) {
	t.Helper()
	sn := subnet.New(0xfe80000000000000)

	mkSwitch := func(guid ibtype.GUID) (*subnet.Node, *subnet.Switch) {
		n, _, err := sn.GetOrCreateNode(guid)
		require.NoError(t, err)
		n.Type = ibtype.NodeTypeSwitch
		sw := sn.GetOrCreateSwitch(n)
		// port0 management port so physp index 0 is stable.
		_, _, err = sn.GetOrCreatePhysp(n, 0, ibtype.GUID(uint64(guid)+0xf000))
		require.NoError(t, err)
		return n, sw
	}

	nA, swA := mkSwitch(ibtype.GUID(0xA))
	nB, swB := mkSwitch(ibtype.GUID(0xB))

	pA1, _, err := sn.GetOrCreatePhysp(nA, 1, ibtype.GUID(0xA1))
	require.NoError(t, err)
	pA3, _, err := sn.GetOrCreatePhysp(nA, 3, ibtype.GUID(0xA3))
	require.NoError(t, err)
	pB1, _, err := sn.GetOrCreatePhysp(nB, 1, ibtype.GUID(0xB1))
	require.NoError(t, err)
	pB3, _, err := sn.GetOrCreatePhysp(nB, 3, ibtype.GUID(0xB3))
	require.NoError(t, err)

	sn.LinkPhysps(pA3, pB3)

	nH1, _, err := sn.GetOrCreateNode(ibtype.GUID(0x1))
	require.NoError(t, err)
	nH1.Type = ibtype.NodeTypeChannelAdapter
	pH1, _, err := sn.GetOrCreatePhysp(nH1, 1, ibtype.GUID(0x1001))
	require.NoError(t, err)
	sn.LinkPhysps(pA1, pH1)
	pH1.LID = ibtype.LID(1)

	nH2, _, err := sn.GetOrCreateNode(ibtype.GUID(0x2))
	require.NoError(t, err)
	nH2.Type = ibtype.NodeTypeChannelAdapter
	pH2, _, err := sn.GetOrCreatePhysp(nH2, 1, ibtype.GUID(0x2001))
	require.NoError(t, err)
	sn.LinkPhysps(pB1, pH2)
	pH2.LID = ibtype.LID(2)

	return sn, swA, swB
}

func TestMinHopEngineTwoSwitchFabric(t *testing.T) {
	sn, swA, swB := buildTwoSwitchFabric(t)

	ctx := &EngineContext{Subnet: sn, MaxUcastLID: ibtype.LID(4)}
	require.NoError(t, MinHopEngine{}.Compute(ctx))

	nA, _ := sn.Node(swA.NodeID)
	nB, _ := sn.Node(swB.NodeID)

	portIndex := func(n *subnet.Node, pid subnet.PhyspID) int {
		for i, p := range n.Physps {
			if p == pid {
				return i
			}
		}
		t.Fatalf("physp %d not found on node", pid)
		return -1
	}

	physpAt := func(n *subnet.Node, portNum uint8) subnet.PhyspID {
		for _, pid := range n.Physps {
			p, _ := sn.Physp(pid)
			if p.PortNum == portNum {
				return pid
			}
		}
		t.Fatalf("no port %d on node", portNum)
		return 0
	}

	// SwA routes to H2 (LID 2) out its port3 (the inter-switch link).
	require.Equal(t, physpAt(nA, 3), swA.LFT[2])
	// SwB routes to H1 (LID 1) out its port3.
	require.Equal(t, physpAt(nB, 3), swB.LFT[1])

	port3IdxA := portIndex(nA, physpAt(nA, 3))
	require.Equal(t, 2, swA.MinHop[2][port3IdxA])
	port3IdxB := portIndex(nB, physpAt(nB, 3))
	require.Equal(t, 2, swB.MinHop[1][port3IdxB])
}
