// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ucast

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/pacer"
	"github.com/ibfabric/osmd/internal/subnet"
)

// blockSize is the number of LFT entries per LinearFT MAD attribute
// (IBTA fixes this at 64 entries of one output-port byte each).
const blockSize = 64

// Emitter pushes computed LFTs to switches via the pacer, skipping
// blocks the cache reports unchanged (use_ucast_cache).
type Emitter struct {
	Pacer *pacer.Pacer
	Cache *Cache
}

// EmitSwitch pushes every changed LFT block for sw. The block's output
// port for each of its 64 destination LIDs is carried as a single byte
// per entry; the block number is prefixed to the payload since this
// transport's Send does not carry a separate AttrModifier field.
func (e *Emitter) EmitSwitch(ctx context.Context, sn *subnet.Subnet, sw *subnet.Switch, dest ibtype.LID) error {
	n, ok := sn.Node(sw.NodeID)
	if !ok {
		return fmt.Errorf("emitting lft: switch %d has no backing node", sw.ID)
	}
	numBlocks := (len(sw.LFT) + blockSize - 1) / blockSize
	for block := 0; block < numBlocks; block++ {
		start := block * blockSize
		end := start + blockSize
		if end > len(sw.LFT) {
			end = len(sw.LFT)
		}
		payload := make([]byte, 4+blockSize)
		binary.BigEndian.PutUint32(payload[:4], uint32(block))
		for i := start; i < end; i++ {
			port := sw.LFT[i]
			portNum := byte(0xff) // unreachable sentinel
			for _, pid := range n.Physps {
				if pid == port && port != 0 {
					if p, ok := sn.Physp(pid); ok {
						portNum = p.PortNum
					}
					break
				}
			}
			payload[4+i-start] = portNum
		}
		if e.Cache != nil && !e.Cache.LFTBlockChanged(sw.ID, block, payload) {
			continue
		}
		done := make(chan error, 1)
		_, err := e.Pacer.Send(ctx, mad.AttrLinearFT, dest, payload, false, func(r pacer.Result) {
			if r.Outcome != pacer.OutcomeOK {
				done <- fmt.Errorf("lft block %d to switch %d: %v", block, sw.ID, r.Err)
				return
			}
			done <- nil
		})
		if err != nil {
			return err
		}
		if err := <-done; err != nil {
			return err
		}
		if e.Cache != nil {
			e.Cache.CommitLFTBlock(sw.ID, block, payload)
		}
	}
	return nil
}
