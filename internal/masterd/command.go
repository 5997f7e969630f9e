package masterd

import (
	"context"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dhttp"
	"github.com/datawire/dlib/dlog"

	"github.com/replogio/replog/internal/logging"
)

// ProcessName identifies this role in logs and in the goroutine names
// registered with the supervisor group.
const ProcessName = "master"

// Command returns the CLI entrypoint for the master role. The --addr flag
// overrides ADDR from the environment when set.
func Command() *cobra.Command {
	var addrFlag string
	cmd := &cobra.Command{
		Use:   ProcessName,
		Short: "Run the replicated-log master",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), addrFlag)
		},
	}
	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address, overrides ADDR")
	return cmd
}

// run loads configuration, wires the engine, and serves the HTTP API until
// ctx is cancelled (including via SIGINT/SIGTERM, handled by the group).
func run(ctx context.Context, addrFlag string) error {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}

	ctx = dlog.WithLogger(ctx, dlog.WrapLogrus(logging.New()))

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	engine := NewEngine(cfg, metrics)
	api := NewAPI(engine, metrics, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}

	g := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		SoftShutdownTimeout:  5 * time.Second,
		EnableSignalHandling: true,
		ShutdownOnNonError:   true,
	})

	dlog.Infof(ctx, "master listening on %s, %d configured secondaries", cfg.Addr, len(engine.Workers()))

	g.Go("workers", engine.RunWorkers)

	g.Go("server-http", func(ctx context.Context) (err error) {
		sc := &dhttp.ServerConfig{Handler: api.Router()}
		if err = sc.Serve(ctx, listener); err != nil && ctx.Err() != nil {
			err = nil // normal shutdown
		}
		return err
	})

	return g.Wait()
}
