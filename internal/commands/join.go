package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:   "join <room>",
	Short: "Join a room and report who is already there",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return join(cmd.Context(), args[0])
	},
}

func join(ctx context.Context, room string) error {
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

	fmt.Println()
	fmt.Println(ui.RoomInfo{RoomKey: room, Peers: peers}.View())
	return nil
}
