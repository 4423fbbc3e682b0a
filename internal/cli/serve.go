package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smokyabdulrahman/salat/internal/schedule"
	"github.com/smokyabdulrahman/salat/internal/server"
)

var flagListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve prayer times over HTTP",
		Long:  "Start a JSON API compatible with the Al Adhan timings endpoint.\n\nRoutes:\n  GET /healthz\n  GET /api/v1/timings\n  GET /api/v1/next\n  GET /api/v1/methods\n\nThe configured location is the default; requests may override it with\nlatitude, longitude, utc_offset, method, school and date parameters.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (overrides config listen_addr)")
	addLoopFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if flagInterval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", flagInterval)
	}

	cfg := effectiveConfig(cmd)
	if cmd.Flags().Changed("listen") {
		if err := cfg.Set("listen_addr", flagListen); err != nil {
			return err
		}
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}

	// The status loop keeps today's times warm and drives MQTT when enabled.
	var sink schedule.Sink = schedule.SinkFunc(func(_ context.Context, snap schedule.Snapshot) error {
		s.log.Debug().
			Str("next", string(snap.Next.Key)).
			Str("urgency", snap.Urgency.String()).
			Msg("status")
		return nil
	})
	pub, err := dialPublisher(cmd, cfg)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
		sink = multiSink{sink, pub}
	}

	srv := server.New(cfg.ListenAddr, s.sched, server.WithLogger(s.log), server.WithClock(s.now))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return s.sched.Run(gctx, flagInterval, s.now, sink)
	})

	fmt.Printf("Serving prayer times for %s on http://%s\n", s.loc.Label(), cfg.ListenAddr)
	return g.Wait()
}
