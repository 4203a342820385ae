// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command osmd is the InfiniBand subnet manager daemon. It wires the
// transaction pacer, discovery walker, LID manager, unicast/multicast
// routing engines, SA state, and the trap/inform engine into a sweep
// orchestrator, and serves a read-only diagnostics console plus a
// Prometheus metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ibfabric/osmd/internal/config"
	"github.com/ibfabric/osmd/internal/console"
	"github.com/ibfabric/osmd/internal/discovery"
	"github.com/ibfabric/osmd/internal/dropmgr"
	"github.com/ibfabric/osmd/internal/election"
	"github.com/ibfabric/osmd/internal/ibtype"
	"github.com/ibfabric/osmd/internal/lidmgr"
	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/mcast"
	"github.com/ibfabric/osmd/internal/metrics"
	"github.com/ibfabric/osmd/internal/pacer"
	"github.com/ibfabric/osmd/internal/sa"
	"github.com/ibfabric/osmd/internal/subnet"
	"github.com/ibfabric/osmd/internal/sweep"
	"github.com/ibfabric/osmd/internal/trap"
	"github.com/ibfabric/osmd/internal/transport"
	"github.com/ibfabric/osmd/internal/ucast"
)

func main() {
	configPath := flag.String("config", "", "path to the HCL options file")
	simulate := flag.Bool("simulate", true, "serve the bundled demo fabric over an in-process loopback transport")
	localGUID := flag.Uint64("local-guid", 0x2, "local SM port GUID")
	lidDBPath := flag.String("lid-db", "osmd_guid2lid.db", "path to the persistent GUID->LID store")
	flag.Parse()

	opt := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		opt = loaded
	}

	log, err := logging.New(logging.Options{
		LogFile:      opt.LogFile,
		LogMaxSizeMB: opt.LogMaxSizeMB,
		LogFlags:     logging.Flag(opt.LogFlags),
		ForceFlush:   opt.ForceLogFlush,
		AccumLogFile: opt.AccumLogFile,
		LogPrefix:    opt.LogPrefix,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sn := subnet.New(opt.SubnetPrefix)

	lb := transport.NewLoopback()
	if *simulate {
		lb.Respond = newDemoFabric().responder()
	}

	p, err := pacer.Bind(lb, ibtype.GUID(*localGUID), pacer.Options{
		MaxWireSMPs:           opt.MaxWireSMPs,
		MaxWireSMPs2:          opt.MaxWireSMPs2,
		MaxSMPsTimeout:        opt.MaxSMPsTimeout(),
		TransactionTimeout:    opt.TransactionTimeout(),
		TransactionRetries:    opt.TransactionRetries,
		TimeoutBurstThreshold: 16,
	}, log)
	if err != nil {
		log.Error("binding pacer", "err", err)
		os.Exit(1)
	}
	defer p.Stop()

	store, err := lidmgr.NewStore(*lidDBPath)
	if err != nil {
		log.Error("opening LID store", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	if opt.ReassignLIDs {
		if err := store.Clear(); err != nil {
			log.Error("clearing LID store for reassign_lids", "err", err)
			os.Exit(1)
		}
	}
	lm := lidmgr.NewManager(store, opt.HonorGUID2LIDFile)

	recv := discovery.NewReceivers(sn, log)
	walker := discovery.NewWalker(sn, recv, p, log)

	dm := dropmgr.New(sn, log)
	registry := ucast.NewRegistry()
	mcastEngine := mcast.Engine{}

	trapEngine := trap.New(sn, p, log)

	saEngine := sa.Engine{Subnet: sn}
	_ = saEngine // no inbound path issues GetTable queries (the console's dumps read the subnet directly); Set/Delete go through saRequests below
	mcMember := &sa.MCMember{Subnet: sn, PacketLifeTimeCap: opt.PacketLifeTime}
	mlids := sa.NewMLIDAllocator(sn)
	services := &sa.Services{Subnet: sn}
	saRequests := &sa.RequestHandler{Subnet: sn, MCMember: mcMember, Services: services, NextMLID: mlids.Next, Log: log}

	p.Unsolicited = func(ctx context.Context, frame *mad.Frame) {
		if frame.Header.Class == mad.ClassSubnetAdmin {
			saRequests.HandleUnsolicited(ctx, frame)
			return
		}
		trapEngine.HandleUnsolicited(ctx, frame)
	}

	el := election.New(
		election.Candidate{GUID: ibtype.GUID(*localGUID), Priority: opt.SMPriority},
		election.Options{
			Priority:        opt.SMPriority,
			SMKey:           opt.SMKey,
			PollInterval:    opt.SMInfoPollingTimeout(),
			PollRetryNumber: opt.PollingRetryNumber,
		}, log)
	el.OnBecomeMaster = func() { log.Info("election: became master") }
	el.OnBecomeStandby = func() { log.Info("election: became standby") }
	el.OnNotActive = func() { log.Info("election: not active") }

	met := metrics.New()
	reg := prometheus.NewRegistry()
	if err := reg.Register(met); err != nil {
		log.Error("registering metrics", "err", err)
	}

	con := console.New(sn, log)

	var maxUcastLID ibtype.LID
	phases := map[sweep.State]sweep.Phase{
		sweep.StateDiscovering: func(ctx context.Context, heavy bool) error {
			dm.ResetCounts()
			p.ResetSweepCounters()
			return walker.Walk(ctx)
		},
		sweep.StateMasterDiscoveryDone: func(ctx context.Context, heavy bool) error {
			el.CompleteDiscovery(nil)
			return nil
		},
		sweep.StateConfiguringLIDs: func(ctx context.Context, heavy bool) error {
			lm.BeginSweep()
			maxUcastLID = 0
			sn.Lock()
			defer sn.Unlock()
			for _, phy := range sn.Physps() {
				if phy.PortGUID.IsZero() {
					continue
				}
				a := lm.Assign(phy.PortGUID, phy.LID, opt.LMC)
				phy.LID = a.Range.Base
				phy.LMC = a.Range.LMC
				if top := a.Range.Top(); top > maxUcastLID {
					maxUcastLID = top
				}
			}
			return nil
		},
		sweep.StateConfiguringUnicast: func(ctx context.Context, heavy bool) error {
			sn.Lock()
			defer sn.Unlock()
			engCtx := &ucast.EngineContext{Subnet: sn, MaxUcastLID: maxUcastLID}
			_, err := registry.Run(engCtx, opt.RoutingEngines(), opt.NoFallback)
			return err
		},
		sweep.StateConfiguringMulticast: func(ctx context.Context, heavy bool) error {
			sn.Lock()
			defer sn.Unlock()
			adj := ucast.BuildAdjacency(sn)
			for _, g := range sn.MCGroups() {
				if err := mcastEngine.ComputeGroup(sn, adj, g); err != nil {
					return err
				}
			}
			return nil
		},
		sweep.StateSettingLinkState: func(ctx context.Context, heavy bool) error {
			sn.Lock()
			dm.Sweep(heavy)
			services.ExpireBefore(time.Now())
			sn.Unlock()
			return nil
		},
	}

	orch := sweep.New(opt.SweepInterval(), log, phases)
	con.WatchSweep(orch)
	prevOnStateChange := orch.OnStateChange
	orch.OnStateChange = func(s sweep.State) {
		met.SweepGeneration.Set(float64(orch.Generation.Load()))
		if s == sweep.StateSubnetUp || s == sweep.StateIdle {
			met.SweepsTotal.Inc()
		}
		if prevOnStateChange != nil {
			prevOnStateChange(s)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", con.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", opt.ConsolePort), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("console server exited", "err", err)
		}
	}()

	orch.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	orch.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	con.Shutdown(shutdownCtx)
}
