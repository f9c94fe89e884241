// Command stroboscope compiles measurement requirements against a
// topology and either prints the resulting schedule (compile mode) or
// runs the measurement campaigns against the routers (run mode).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/backend"
	"github.com/net-stroboscope/collector/campaign"
	"github.com/net-stroboscope/collector/config"
	"github.com/net-stroboscope/collector/lang"
	"github.com/net-stroboscope/collector/logging"
	"github.com/net-stroboscope/collector/netdb"
	"github.com/net-stroboscope/collector/query"
	"github.com/net-stroboscope/collector/schedule"
)

func main() {
	var (
		configPath   = flag.String("config", "", "collector configuration file (YAML)")
		topologyPath = flag.String("topology", "", "network topology file (YAML)")
		reqPath      = flag.String("requirements", "", "measurement requirements file")
		mode         = flag.String("mode", "compile", "compile: print the schedule; run: execute campaigns")
	)
	flag.Parse()

	if err := run(*configPath, *topologyPath, *reqPath, *mode); err != nil {
		fmt.Fprintln(os.Stderr, "stroboscope:", err)
		os.Exit(1)
	}
}

func run(configPath, topologyPath, reqPath, mode string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // best-effort flush

	if topologyPath == "" || reqPath == "" {
		return fmt.Errorf("both -topology and -requirements are required")
	}
	graph, err := netdb.LoadTopology(topologyPath)
	if err != nil {
		return err
	}
	db := netdb.New(graph,
		netdb.WithMaxBW(cfg.MaxBW),
		netdb.WithRetention(cfg.Retention),
		netdb.WithLogger(log))

	text, err := os.ReadFile(reqPath)
	if err != nil {
		return fmt.Errorf("cannot load the requirements: %w", err)
	}
	reqs, err := lang.Parse(string(text), lang.WithLogger(log))
	if err != nil {
		return err
	}
	reqs.Pipeline = cfg.Pipeline
	reqs.Solver = schedule.ILPSolver{}
	reqs.Log = log

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "compile":
		return compile(ctx, db, reqs)
	case "run":
		return runCampaigns(ctx, cfg, db, reqs, log)
	}
	return fmt.Errorf("unknown mode %q", mode)
}

// compile prints the schedule and the rules of every query.
func compile(ctx context.Context, db *netdb.DB, reqs *query.Requirements) error {
	comp, err := reqs.Compile(ctx, db, 0)
	if err != nil {
		return err
	}
	if comp == nil {
		return fmt.Errorf("nothing to compile: the requirements did not change since the previous compilation")
	}
	fmt.Printf("# schedule: %d slots of %.0f ms, %.0f ms apart\n",
		len(comp.Schedule), reqs.SlotDuration, reqs.InterSlotDelay)
	for i, slot := range comp.Schedule {
		fmt.Printf("slot %d:\n", i)
		for _, it := range slot {
			q := it.(*query.Query)
			fmt.Printf("  %s (cost %.2f Mbps)\n", q.Name(), q.Cost())
		}
	}
	fmt.Println("# rules:")
	for _, q := range comp.Queries {
		fmt.Printf("%s\n", q)
		for _, r := range comp.Rules[q] {
			fmt.Printf("  %s\n", r)
		}
	}
	return nil
}

// runCampaigns executes the measurement loop until interrupted.
func runCampaigns(ctx context.Context, cfg *config.Config, db *netdb.DB, reqs *query.Requirements, log *zap.Logger) error {
	var be backend.Backend
	if cfg.Backend.DryRun {
		be = &backend.Nop{Log: log}
	} else {
		profile, ok := backend.ProfileByName(cfg.Backend.Profile)
		if !ok {
			return fmt.Errorf("unknown backend profile %q", cfg.Backend.Profile)
		}
		be = backend.NewSSH(profile, backend.SSHConfig{
			User:             cfg.Backend.User,
			KeyPath:          cfg.Backend.KeyPath,
			CollectorAddress: cfg.Backend.CollectorAddress,
			EncapAddress:     cfg.Backend.EncapAddress,
			DialTimeout:      cfg.Backend.DialTimeout,
		}, log)
	}
	defer be.Close()

	runner := &campaign.Runner{
		Net:          db,
		Requirements: reqs,
		Backend:      be,
		Log:          log,
	}
	err := runner.Run(ctx)
	if err == context.Canceled {
		return nil // clean shutdown
	}
	return err
}
