package commands

import (
	"context"
	"fmt"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/peer"
	"github.com/BioHazard786/rendezvous/internal/roomkey"
	"github.com/BioHazard786/rendezvous/internal/signalclient"
	"github.com/BioHazard786/rendezvous/internal/ui"
)

var (
	flagRelay   bool
	flagTimeout time.Duration
)

// peerPollInterval is how often the caller re-joins to see whether the
// callee has arrived.
const peerPollInterval = time.Second

var callCmd = &cobra.Command{
	Use:     "call [room]",
	Aliases: []string{"c"},
	Short:   "Start a WebRTC handshake as the calling side",
	Long: `Join a room, wait for a peer, send it an offer and trickle ICE candidates
until the connection is established. A memorable room key is generated when
none is given.

Examples:
  rendezvous call
  rendezvous call amber-falcon-river-stone
  rendezvous call --relay --turn turn.example.com my-room`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room := ""
		if len(args) == 1 {
			room = args[0]
		} else {
			room = roomkey.Generate()
			fmt.Println(ui.KeyView(room, "On the other side run: rendezvous answer "+room))
			fmt.Println()
		}
		return handshake(cmd.Context(), peer.Caller, room)
	},
}

var answerCmd = &cobra.Command{
	Use:     "answer <room>",
	Aliases: []string{"a"},
	Short:   "Answer a WebRTC handshake started with call",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handshake(cmd.Context(), peer.Callee, args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{callCmd, answerCmd} {
		c.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Only use TURN relay candidates")
		c.Flags().DurationVarP(&flagTimeout, "timeout", "t", 2*time.Minute, "Give up after this long")
	}
}

func handshake(ctx context.Context, role peer.Role, room string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	relay := peer.UseRelay(flagRelay, cfg.GetTURNServers() != nil)
	if relay && cfg.GetTURNServers() == nil {
		return fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	ctx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	peers, err := joinRoom(ctx, client, room)
	if err != nil {
		client.Close()
		return err
	}

	pc, err := peer.NewPeerConnection(cfg, relay)
	if err != nil {
		client.Close()
		return err
	}
	session := peer.NewSession(role, room, pc, client)
	defer session.Close()

	if role == peer.Caller && peers == 0 {
		if err := waitForPeer(ctx, client, room); err != nil {
			return err
		}
	}

	return runSession(ctx, session, role, room, cfg, relay)
}

// waitForPeer re-joins room until somebody else is in it. Offers sent to an
// empty room are not stored.
func waitForPeer(ctx context.Context, client *signalclient.Client, room string) error {
	spin := ui.NewWaitingSpinner("Waiting for a peer to join " + room + "...")
	spin.Start()
	defer spin.Stop()

	ticker := time.NewTicker(peerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return peer.WrapError("wait for peer", ctx.Err(), room)
		case <-ticker.C:
		}

		peers, err := joinRoom(ctx, client, room)
		if err != nil {
			return err
		}
		if peers > 0 {
			spin.Success("Peer joined")
			return nil
		}
	}
}

func runSession(ctx context.Context, session *peer.Session, role peer.Role, room string, cfg *config.ClientConfig, relay bool) error {
	waiting := "Negotiating with peer..."
	if role == peer.Callee {
		waiting = "Waiting for an offer..."
	}
	spin := ui.NewWaitingSpinner(waiting)
	spin.Start()
	defer spin.Stop()

	session.OnState = func(state pion.ICEConnectionState) {
		spin.UpdateMessage("ICE " + state.String() + "...")
	}

	start := time.Now()
	if err := session.Run(ctx); err != nil {
		spin.Error("Connection failed")
		return peer.NewError(role.String(), err)
	}
	spin.Success("Peer connection established")

	fmt.Println()
	fmt.Println(ui.SummaryView(handshakeRows(role, room, cfg, relay, time.Since(start))))
	return nil
}

func handshakeRows(role peer.Role, room string, cfg *config.ClientConfig, relay bool, took time.Duration) []ui.Row {
	mode := "direct + relay"
	if relay {
		mode = "relay only"
	}
	return []ui.Row{
		{Label: "Room", Value: room},
		{Label: "Role", Value: role.String()},
		{Label: "Server", Value: cfg.ServerURL},
		{Label: "ICE mode", Value: mode},
		{Label: "Time to connect", Value: took.Round(time.Millisecond).String()},
	}
}
