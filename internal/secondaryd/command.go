package secondaryd

import (
	"context"
	"net"
	"net/http"
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
const ProcessName = "secondary"

// Command returns the CLI entrypoint for the secondary role. The --addr flag
// overrides ADDR from the environment when set.
func Command() *cobra.Command {
	var addrFlag string
	cmd := &cobra.Command{
		Use:   ProcessName,
		Short: "Run a replicated-log secondary",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), addrFlag)
		},
	}
	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address, overrides ADDR")
	return cmd
}

// run loads configuration, wires the log and API, and serves the HTTP
// surface until ctx is cancelled. The pending-sync catch-up task is started
// only after the listener is open.
func run(ctx context.Context, addrFlag string) error {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}

	ctx = dlog.WithLogger(ctx, dlog.WrapLogrus(logging.New()))

	log := NewLog()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, func() float64 { return float64(log.PendingSize()) })
	api := NewAPI(log, metrics, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		time.Duration(cfg.ReplicaDelay)*time.Second, cfg.ErrorRate)

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}

	g := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		SoftShutdownTimeout:  5 * time.Second,
		EnableSignalHandling: true,
		ShutdownOnNonError:   true,
	})

	dlog.Infof(ctx, "secondary listening on %s, master at %s", cfg.Addr, cfg.MasterURL)

	g.Go("server-http", func(ctx context.Context) (err error) {
		sc := &dhttp.ServerConfig{Handler: api.Router()}
		if err = sc.Serve(ctx, listener); err != nil && ctx.Err() != nil {
			err = nil // normal shutdown
		}
		return err
	})

	if cfg.SecondaryURL != "" {
		g.Go("pending-sync", func(ctx context.Context) error {
			client := &http.Client{Timeout: 5 * time.Second}
			PendingSync(ctx, client, cfg.MasterURL, cfg.SecondaryURL)
			return nil
		})
	} else {
		dlog.Warnf(ctx, "SECONDARY_URL not set, skipping startup catch-up sync")
	}

	return g.Wait()
}
