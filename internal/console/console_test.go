// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package console

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/subnet"
)

func TestHandleDumpLFTReturnsSwitchTable(t *testing.T) {
	sn := subnet.New(0xfe80000000000000)
	n, _, err := sn.GetOrCreateNode(ibtype.GUID(0xA))
	require.NoError(t, err)
	n.Type = ibtype.NodeTypeSwitch
	n.Description = "sw1"
	sw := sn.GetOrCreateSwitch(n)
	sw.MaxLID = ibtype.LID(2)
	sw.LFT = make([]subnet.PhyspID, 3)

	c := New(sn, nil)
	req := httptest.NewRequest(http.MethodGet, "/dump/lft/1", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sw1")
}

func TestHandleDumpLFTUnknownSwitchReturns404(t *testing.T) {
	sn := subnet.New(0xfe80000000000000)
	c := New(sn, nil)
	req := httptest.NewRequest(http.MethodGet, "/dump/lft/99", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
