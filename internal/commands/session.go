package commands

import (
	"context"
	"time"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/peer"
	"github.com/BioHazard786/rendezvous/internal/signalclient"
	"github.com/BioHazard786/rendezvous/internal/ui"
)

// connectTimeout bounds dialing and each acknowledged request.
const connectTimeout = 10 * time.Second

func loadConfig() (*config.ClientConfig, error) {
	cfg, err := config.LoadClient(config.ClientOptions{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	})
	if err != nil {
		return nil, peer.NewError("load config", err)
	}
	return cfg, nil
}

func clientOptions() []signalclient.Option {
	var opts []signalclient.Option
	if flagMsgpack {
		opts = append(opts, signalclient.WithMsgpack())
	}
	if flagSysDNS {
		opts = append(opts, signalclient.WithSystemResolver())
	}
	return opts
}

// connect dials the configured server behind a spinner.
func connect(ctx context.Context, cfg *config.ClientConfig) (*signalclient.Client, error) {
	spin := ui.NewConnectionSpinner("Connecting to " + cfg.ServerURL + "...")
	spin.Start()

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client := signalclient.NewClient(cfg.ServerURL, clientOptions()...)
	if err := client.Connect(dialCtx); err != nil {
		spin.Error("Could not reach the signaling server")
		return nil, peer.NewError("connect to server", err)
	}
	spin.Stop()
	ui.PrintSuccessf("Connected to %s", cfg.ServerURL)
	return client, nil
}

func joinRoom(ctx context.Context, client *signalclient.Client, room string) (int, error) {
	ackCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	peers, err := client.JoinRoom(ackCtx, room)
	if err != nil {
		return 0, peer.NewError("join room", err)
	}
	return peers, nil
}
