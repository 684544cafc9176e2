package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Default client configuration values.
const (
	DefaultServerURL = "ws://localhost:8080/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// ClientConfig holds the CLI configuration.
type ClientConfig struct {
	// ServerURL is the signaling WebSocket endpoint.
	ServerURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// ClientOptions carries CLI flag overrides. Empty fields fall through to the
// environment.
type ClientOptions struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// LoadClient reads configuration with the following priority:
// 1. CLI flags (passed via ClientOptions) - highest priority
// 2. Environment variables (and .env)
// 3. Hardcoded defaults - lowest priority
func LoadClient(opts ClientOptions) (*ClientConfig, error) {
	_ = godotenv.Load()
	return loadClient(os.LookupEnv, opts)
}

func loadClient(lookup func(string) (string, bool), opts ClientOptions) (*ClientConfig, error) {
	pick := func(flagValue, env, def string) string {
		if flagValue != "" {
			return flagValue
		}
		if v, ok := lookup(env); ok && v != "" {
			return v
		}
		return def
	}

	serverURL, err := normalizeServerURL(pick(opts.ServerURL, "SERVER_URL", DefaultServerURL))
	if err != nil {
		return nil, err
	}

	return &ClientConfig{
		ServerURL:  serverURL,
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
	}, nil
}

// normalizeServerURL accepts a full ws(s)/http(s) URL or a bare host, which is
// taken to mean wss://host/ws.
func normalizeServerURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "wss://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid SERVER_URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid SERVER_URL %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid SERVER_URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// HTTPBaseURL returns the server's HTTP origin, used for /health and /version.
func (c *ClientConfig) HTTPBaseURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String()
}

// GetSTUNServers returns STUN server URLs as strings
func (c *ClientConfig) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured. A bare host expands
// to the usual UDP, TCP and TLS endpoints.
func (c *ClientConfig) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	if strings.HasPrefix(c.TURNServer, "turn:") || strings.HasPrefix(c.TURNServer, "turns:") {
		return []string{c.TURNServer}
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *ClientConfig) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
