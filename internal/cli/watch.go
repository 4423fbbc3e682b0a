package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/salat/internal/config"
	"github.com/smokyabdulrahman/salat/internal/display"
	"github.com/smokyabdulrahman/salat/internal/notify"
	"github.com/smokyabdulrahman/salat/internal/prayer"
	"github.com/smokyabdulrahman/salat/internal/schedule"
)

// defaultInterval is how often watch and serve refresh the status.
const defaultInterval = 30 * time.Second

var (
	flagInterval   time.Duration
	flagMQTTBroker string
	flagMQTTTopic  string
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep printing the next prayer",
		Long:  "Refresh the next prayer and its urgency periodically until interrupted.\nWith --mqtt-broker the status is also published as a retained JSON message.",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}

	addLoopFlags(cmd)
	return cmd
}

func addLoopFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&flagInterval, "interval", defaultInterval, "Refresh interval")
	cmd.Flags().StringVar(&flagMQTTBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (overrides config)")
	cmd.Flags().StringVar(&flagMQTTTopic, "mqtt-topic", "", "MQTT topic (overrides config)")
}

// multiSink fans a snapshot out to several sinks and joins their errors.
type multiSink []schedule.Sink

func (m multiSink) Send(ctx context.Context, snap schedule.Snapshot) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// dialPublisher connects to MQTT when a broker is configured. It returns nil
// when none is.
func dialPublisher(cmd *cobra.Command, cfg *config.Config) (*notify.Publisher, error) {
	broker, topic := cfg.MQTTBroker, cfg.MQTTTopic
	if cmd.Flags().Changed("mqtt-broker") {
		broker = flagMQTTBroker
	}
	if cmd.Flags().Changed("mqtt-topic") {
		topic = flagMQTTTopic
	}
	if broker == "" {
		return nil, nil
	}

	// Run the values through the config validators.
	check := config.Config{}
	if err := check.Set("mqtt_broker", broker); err != nil {
		return nil, err
	}
	if err := check.Set("mqtt_topic", topic); err != nil {
		return nil, err
	}

	return notify.Dial(notify.Config{Broker: broker, Topic: topic}, logger)
}

// statusLine renders one watch line, e.g. "14:02:11  Asr 15:26 (1h 24m)".
func statusLine(snap schedule.Snapshot, now time.Time, layout string) string {
	next := snap.Next
	if next.At.IsZero() {
		return fmt.Sprintf("%s  %s %s", now.Format("15:04:05"), next.Key, prayer.Sentinel)
	}
	when := next.At.Format(layout)
	if next.Tomorrow {
		when += " tomorrow"
	}
	text := fmt.Sprintf("%s %s (%s)", next.Key, when, prayer.FormatRemaining(next.At.Sub(now)))
	return now.Format("15:04:05") + "  " + display.Urgent(snap.Urgency, text)
}

// printSink writes a status line whenever it is sent a snapshot.
func printSink(w io.Writer, clock func() time.Time, layout string) schedule.Sink {
	return schedule.SinkFunc(func(_ context.Context, snap schedule.Snapshot) error {
		_, err := fmt.Fprintln(w, statusLine(snap, clock(), layout))
		return err
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if flagInterval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", flagInterval)
	}

	cfg := effectiveConfig(cmd)
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}

	clock := s.now
	sinks := multiSink{printSink(os.Stdout, clock, prayer.Layout(cfg.TimeFormat))}

	pub, err := dialPublisher(cmd, cfg)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	s.log.Info().Dur("interval", flagInterval).Str("location", s.loc.Label()).Msg("watching")
	return s.sched.Run(ctx, flagInterval, clock, sinks)
}
