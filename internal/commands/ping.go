package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/peer"
	"github.com/BioHazard786/rendezvous/internal/ui"
)

var flagPingCount int

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure the round trip to the signaling server",
	Long: `Send ping-server requests and report the server clock and round-trip time.

Examples:
  rendezvous ping
  rendezvous ping --server signal.example.com -n 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ping(cmd.Context(), flagPingCount)
	},
}

func init() {
	pingCmd.Flags().IntVarP(&flagPingCount, "count", "n", 3, "Number of pings to send")
}

func ping(ctx context.Context, count int) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	var (
		serverTime time.Time
		best, sum  time.Duration
	)
	for i := 0; i < count; i++ {
		ackCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		t, rtt, err := client.Ping(ackCtx)
		cancel()
		if err != nil {
			return peer.NewError("ping server", err)
		}
		serverTime = t
		sum += rtt
		if i == 0 || rtt < best {
			best = rtt
		}
	}

	fmt.Println()
	fmt.Println(ui.TitleStyle.Render(ui.IconTime + " Round trip to " + cfg.ServerURL))
	fmt.Println(ui.SummaryView(pingRows(cfg.ServerURL, serverTime, best, sum/time.Duration(count), count)))
	return nil
}

func pingRows(server string, serverTime time.Time, best, avg time.Duration, count int) []ui.Row {
	return []ui.Row{
		{Label: "Server", Value: server},
		{Label: "Server time", Value: serverTime.Local().Format(time.RFC3339Nano)},
		{Label: "Clock offset", Value: time.Until(serverTime).Round(time.Millisecond).String()},
		{Label: "Best RTT", Value: best.Round(time.Microsecond).String()},
		{Label: "Average RTT", Value: avg.Round(time.Microsecond).String()},
		{Label: "Samples", Value: fmt.Sprint(count)},
	}
}
