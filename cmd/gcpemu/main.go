// Copyright 2025 AUTHORS
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command gcpemu runs the local emulator: the HTTP Surface for the
// storage, compute, network, and identity families on top of a BuntDB
// metadata store, an object byte store that keeps each object's bytes at a
// path derived from its bucket and name, and a local
// Docker Engine acting as the Container Driver (spec.md §9).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/computesvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/containerdriver"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/httpapi"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/idsvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/metrics"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/netsvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/objectstore"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/storagesvc"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/store"
	"github.com/ANSHJOSHI1811/gcs-emulator-sub000/pkg/zonecatalog"
)

type serveFlags struct {
	dataDir      string
	listenAddr   string
	selfBase     string
	deadline     time.Duration
	sweepEvery   time.Duration
	sweepMinAge  time.Duration
	shutdownWait time.Duration
}

func newRootCmd() *cobra.Command {
	f := &serveFlags{}
	root := &cobra.Command{
		Use:   "gcpemu",
		Short: "local emulator for a subset of a public cloud's compute, storage, network, and identity APIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr, "", log.LstdFlags)
			return serve(cmd.Context(), f, logger)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&f.dataDir, "data-dir", "data", "directory for the metadata database and object bytes")
	flags.StringVar(&f.listenAddr, "listen-addr", ":8080", "address to serve the emulator's HTTP API on")
	flags.StringVar(&f.selfBase, "self-base", "http://localhost:8080", "base URL this process reports in selfLink fields")
	flags.DurationVar(&f.deadline, "request-deadline", 30*time.Second, "per-request deadline enforced on every handler")
	flags.DurationVar(&f.sweepEvery, "sweep-interval", 10*time.Minute, "interval between orphan-file and expired-signed-URL sweeps")
	flags.DurationVar(&f.sweepMinAge, "sweep-min-age", time.Hour, "minimum file age before the orphan sweeper will remove it")
	flags.DurationVar(&f.shutdownWait, "shutdown-timeout", 15*time.Second, "grace period for in-flight requests during shutdown")
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

// serve wires the service layer together and runs the HTTP server and
// background sweepers under one errgroup.Group, so a fatal error in any of
// them cancels the shared context and unwinds the rest (spec.md §9
// "Startup ordering").
func serve(ctx context.Context, f *serveFlags, logger *log.Logger) error {
	if err := os.MkdirAll(f.dataDir, 0o700); err != nil {
		return err
	}
	dbPath := filepath.Join(f.dataDir, "metadata.db")
	bytesDir := filepath.Join(f.dataDir, "objects")

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	bytesStore, err := objectstore.New(bytesDir)
	if err != nil {
		return err
	}

	driver, err := containerdriver.New()
	if err != nil {
		return err
	}
	defer driver.Close()

	if err := driver.Ping(ctx); err != nil {
		return err
	}

	zones := zonecatalog.Default()
	nets := netsvc.New(st, driver)
	ids := idsvc.New(st, nets)
	compute := computesvc.New(st, driver, nets, zones)
	storage := storagesvc.New(st, bytesStore, f.selfBase)

	if err := reconcileDefaultNetworks(ctx, st, nets, logger); err != nil {
		return err
	}

	svc := &httpapi.Services{
		ID:       ids,
		Net:      nets,
		Compute:  compute,
		Storage:  storage,
		Zones:    zones,
		SelfBase: f.selfBase,
		Logger:   logger,
		Deadline: f.deadline,
	}
	server := &http.Server{
		Addr:    f.listenAddr,
		Handler: httpapi.Instrumented(httpapi.NewMux(svc)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("listening on %s", f.listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		runSweeper(ctx, f.sweepEvery, "orphan_files", logger, func() (int, error) {
			return bytesStore.Sweep(st, f.sweepMinAge, time.Now())
		})
		return nil
	})
	g.Go(func() error {
		runSweeper(ctx, f.sweepEvery, "signed_urls", logger, storage.SweepExpiredSignedURLs)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), f.shutdownWait)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// reconcileDefaultNetworks re-ensures every project's default network at
// startup. CreateProject already ensures it inline; this is the backstop
// for a crash between that step and the one before it. EnsureDefaultNetwork
// only writes the metadata row (the default network maps to the engine's
// built-in bridge) and is safe to call concurrently for distinct projects,
// so the fan-out is bounded rather than serialized; each call is retried a
// few times, and the first call that still fails cancels the rest and is
// returned.
func reconcileDefaultNetworks(ctx context.Context, st *store.Store, nets *netsvc.Service, logger *log.Logger) error {
	projects, err := st.ListProjects()
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, p := range projects {
		p := p
		g.Go(func() error {
			op := func() error {
				_, err := nets.EnsureDefaultNetwork(ctx, p.ID)
				return err
			}
			b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
			return backoff.Retry(op, backoff.WithContext(b, ctx))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Printf("reconciled default networks for %d project(s)", len(projects))
	return nil
}

// runSweeper runs sweep on a ticker until ctx is canceled, recording each
// pass and any items it removed under the given sweeper name (spec.md §4.C
// orphan sweep, §4.H expired signed URLs).
func runSweeper(ctx context.Context, interval time.Duration, name string, logger *log.Logger, sweep func() (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sweep()
			metrics.SweeperRuns.WithLabelValues(name).Inc()
			if err != nil {
				logger.Printf("%s sweep failed: %v", name, err)
				continue
			}
			if removed > 0 {
				metrics.SweeperItemsRemoved.WithLabelValues(name).Add(float64(removed))
				logger.Printf("%s sweep removed %d item(s)", name, removed)
			}
		}
	}
}
