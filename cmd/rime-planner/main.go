/*
Copyright 2025 The rime-sim Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// rime-planner loads a problem configuration, registers the standard RIME
// arrays on a simulated device and reports memory requirements, the viable
// scaling-dimension value under a byte budget and the chunk split.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/rime-sim/rime-solver-runtime/internal/config"
	"github.com/rime-sim/rime-solver-runtime/internal/logging"
	"github.com/rime-sim/rime-solver-runtime/internal/metrics"
	"github.com/rime-sim/rime-solver-runtime/pkg/device"
	"github.com/rime-sim/rime-solver-runtime/pkg/rime"
	"github.com/rime-sim/rime-solver-runtime/pkg/solver"
)

func main() {
	var (
		configPath  string
		budget      int64
		showChunks  bool
		showReport  bool
		logLevel    string
		metricsAddr string
	)
	pflag.StringVar(&configPath, "config", "", "path to a yaml configuration file")
	pflag.Int64Var(&budget, "budget", 0, "device memory budget in bytes (overrides the config when set)")
	pflag.BoolVar(&showChunks, "chunks", false, "print the chunk split for the budget")
	pflag.BoolVar(&showReport, "report", true, "print the array and property report")
	pflag.StringVar(&logLevel, "zap-log-level", "info", "log level (debug, info, warn, error)")
	pflag.StringVar(&metricsAddr, "metrics-addr", "", "address to serve prometheus metrics on (empty disables)")
	pflag.Parse()

	if err := run(configPath, budget, showChunks, showReport, logLevel, metricsAddr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, budget int64, showChunks, showReport bool, logLevel, metricsAddr string) error {
	log, err := logging.NewLogger(logLevel)
	if err != nil {
		return err
	}
	ctx := logging.IntoContext(context.Background(), log)

	if metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(metricsAddr, metrics.Handler()); err != nil {
				log.Error(err, "metrics server stopped")
			}
		}()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if budget > 0 {
		cfg.MemoryBudgetBytes = budget
	}
	log.V(1).Info("effective configuration", "config", cfg.String())
	solverCfg, err := cfg.SolverConfig()
	if err != nil {
		return err
	}

	sim := device.NewSim()
	s, err := solver.New(ctx, solverCfg, sim, sim, rime.Stages()...)
	if err != nil {
		return err
	}
	if err := s.Initialise(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.Shutdown(ctx); err != nil {
			log.Error(err, "shutdown failed")
		}
	}()

	if showReport {
		if err := s.Report(os.Stdout); err != nil {
			return err
		}
	}

	if cfg.MemoryBudgetBytes > 0 {
		model, err := s.PlanBudget()
		if err != nil {
			return err
		}
		viable, err := model.Viable(cfg.MemoryBudgetBytes)
		if err != nil {
			return err
		}
		fmt.Printf("Viable %s for %d bytes: %d\n",
			model.ScalingDimension, cfg.MemoryBudgetBytes, viable)

		if showChunks {
			sizes, err := s.PlanChunks(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Chunk split: %v\n", sizes)
		}
	}
	return nil
}
