package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/ui"
	"github.com/BioHazard786/rendezvous/internal/version"
)

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagMsgpack  bool
	flagSysDNS   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rendezvous",
	Short: "Client for the rendezvous WebRTC signaling relay",
	Long: `rendezvous talks to a signaling relay: it joins rooms, watches the
offers, answers and ICE candidates flowing through them, and can act as
either side of a WebRTC handshake to check that two peers can connect.`,
	Version: version.Get().String(),
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagServer, "server", "s", "", "Signaling server (host or ws(s):// URL)")
	pf.StringVar(&flagSTUN, "stun", "", "STUN server URL")
	pf.StringVar(&flagTURN, "turn", "", "TURN server host or URL")
	pf.StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	pf.StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	pf.BoolVar(&flagMsgpack, "msgpack", false, "Use MessagePack frames instead of JSON")
	pf.BoolVar(&flagSysDNS, "system-dns", false, "Resolve the server with the system resolver only")

	rootCmd.AddCommand(pingCmd, joinCmd, listenCmd, callCmd, answerCmd, keygenCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		cancel()
		os.Exit(1)
	}
}
