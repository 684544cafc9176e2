package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/peer"
	"github.com/BioHazard786/rendezvous/internal/ui"
)

var listenCmd = &cobra.Command{
	Use:     "listen <room>",
	Aliases: []string{"l"},
	Short:   "Watch the signaling traffic of a room",
	Long: `Join a room and show every offer, answer and ICE candidate relayed to it.

Examples:
  rendezvous listen amber-falcon-river-stone
  rendezvous listen --msgpack my-room`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listen(cmd.Context(), args[0])
	},
}

func listen(ctx context.Context, room string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	peers, err := joinRoom(ctx, client, room)
	if err != nil {
		return err
	}
	fmt.Println(ui.RoomInfo{RoomKey: room, Peers: peers}.View())
	ui.PrintInfof("Showing events relayed to %s", room)

	go func() {
		<-ctx.Done()
		client.Close()
	}()

	m, err := ui.RunFeed(room, client.Incoming())
	if err != nil {
		return peer.NewError("run event feed", err)
	}
	if m.Closed() && ctx.Err() == nil {
		ui.PrintWarning("The server closed the connection")
	}
	return nil
}
