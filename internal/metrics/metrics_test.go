// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterWithAttachesAllSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.RegisterWith(reg))

	m.SweepsTotal.Inc()
	m.ElectionState.Set(4)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	var sawSweeps, sawElection bool
	for _, f := range families {
		switch f.GetName() {
		case "osmd_sweeps_total":
			sawSweeps = true
			require.Equal(t, float64(1), f.Metric[0].GetCounter().GetValue())
		case "osmd_election_state":
			sawElection = true
			require.Equal(t, float64(4), f.Metric[0].GetGauge().GetValue())
		}
	}
	require.True(t, sawSweeps)
	require.True(t, sawElection)
}
