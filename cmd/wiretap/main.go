// Wiretap is a diagnostic network listener.
//
// In TCP mode it accepts connections, discards every byte received and never
// replies; idle connections are closed after the read timeout. In HTTP mode
// every route answers "ok" and /ws echoes WebSocket messages back prefixed
// with "echo: ". With --wiretap (the default) all traffic is hex-dumped at
// debug level.
//
// Usage:
//
//	wiretap [--port 8080] [--http] [flags]
//	wiretap [command]
//
// See 'wiretap --help' for available options.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/develotters/wiretap/internal/capture"
	"github.com/develotters/wiretap/internal/config"
	"github.com/develotters/wiretap/internal/logging"
	"github.com/develotters/wiretap/internal/server"
	"github.com/develotters/wiretap/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serve runs the listener for a resolved configuration. Tests replace it.
var serve = runServer

// rootOptions holds the root command's flag values. They only take effect
// when set explicitly; otherwise the config file value (or default) wins.
type rootOptions struct {
	configPath string
	logLevel   string

	host           string
	port           int
	http           bool
	readTimeout    time.Duration
	connectTimeout time.Duration
	wiretap        bool
	wsPingInterval time.Duration

	captureDir string
	captureDB  string

	maxConnections int
	acceptRate     float64
	acceptBurst    int

	advertise         bool
	advertiseInstance string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "wiretap",
		Short: "Diagnostic TCP sink and HTTP/WebSocket echo listener",
		Long: `A diagnostic listener for poking at network clients.

TCP mode (default) accepts connections, discards whatever is sent and never
replies. Connections that stay idle longer than --read-timeout are closed.

HTTP mode (--http) answers "ok" to every request. The /ws path upgrades to a
WebSocket and replies to each message with "echo: <message>".

Settings are read from the config file first; flags given on the command line
override them.`,
		Example: `  # Discard TCP traffic on port 8080
  wiretap

  # HTTP + WebSocket echo on port 9000
  wiretap --port 9000 --http

  # Hex-dump every byte and capture payloads to SQLite
  wiretap --log-level debug --capture-db ./captures.db

  # Advertise over mDNS so 'wiretap discover' can find it
  wiretap --http --advertise`,
		Version:       version.Full(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd == cmd.Root() {
				// the server initializes logging from the resolved config
				return nil
			}
			level := ""
			if cmd.Flags().Changed("log-level") {
				level = opts.logLevel
			}
			return logging.Initialize(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return serve(cfg)
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file path (default "+defaultPathHint()+")")
	pf.StringVar(&opts.logLevel, "log-level", defaults.Log.Level, "Log level (debug, info, warn, error); falls back to "+logging.LogLevelEnvVar)

	f := rootCmd.Flags()
	f.IntVar(&opts.port, "port", defaults.Server.Port, "Port to listen on (0 picks a free port)")
	f.BoolVar(&opts.http, "http", false, "Serve HTTP and WebSocket echo instead of the TCP sink")
	f.StringVar(&opts.host, "host", defaults.Server.Host, "Address to bind (empty = all interfaces)")
	f.DurationVar(&opts.readTimeout, "read-timeout", defaults.Server.ReadTimeout, "Close connections idle for this long (0 disables)")
	f.DurationVar(&opts.connectTimeout, "connect-timeout", defaults.Server.ConnectTimeout, "HTTP header and WebSocket handshake timeout")
	f.BoolVar(&opts.wiretap, "wiretap", defaults.Server.Wiretap, "Hex-dump all traffic at debug log level")
	f.DurationVar(&opts.wsPingInterval, "ws-ping-interval", defaults.Server.WSPingInterval, "WebSocket keepalive ping interval (0 disables)")
	f.StringVar(&opts.captureDir, "capture-dir", defaults.Capture.Dir, "Append received payloads as JSON lines to a file in this directory")
	f.StringVar(&opts.captureDB, "capture-db", defaults.Capture.DB, "Store received payloads in this SQLite database")
	f.IntVar(&opts.maxConnections, "max-connections", defaults.Limits.MaxConnections, "Maximum simultaneous connections (0 = unlimited)")
	f.Float64Var(&opts.acceptRate, "accept-rate", defaults.Limits.AcceptRate, "Maximum accepted connections per second (0 = unlimited)")
	f.IntVar(&opts.acceptBurst, "accept-burst", defaults.Limits.AcceptBurst, "Accept burst size when --accept-rate is set")
	f.BoolVar(&opts.advertise, "advertise", defaults.Advertise.Enabled, "Advertise the listener over mDNS")
	f.StringVar(&opts.advertiseInstance, "advertise-instance", defaults.Advertise.Instance, "mDNS instance name (default wiretap-<hostname>)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newClientCmd())
	rootCmd.AddCommand(newAnalyzeCmd())

	return rootCmd
}

// resolveConfig loads the config file and applies the flags that were set
// explicitly on the command line.
func resolveConfig(flags *pflag.FlagSet, opts *rootOptions) (*config.Config, error) {
	cfg, err := loadConfigFile(flags, opts)
	if err != nil {
		return nil, err
	}

	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	} else if env := os.Getenv(logging.LogLevelEnvVar); env != "" {
		cfg.Log.Level = env
	}

	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("http") {
		if opts.http {
			cfg.Server.Mode = config.ModeHTTP
		} else {
			cfg.Server.Mode = config.ModeTCP
		}
	}
	if flags.Changed("read-timeout") {
		cfg.Server.ReadTimeout = opts.readTimeout
	}
	if flags.Changed("connect-timeout") {
		cfg.Server.ConnectTimeout = opts.connectTimeout
	}
	if flags.Changed("wiretap") {
		cfg.Server.Wiretap = opts.wiretap
	}
	if flags.Changed("ws-ping-interval") {
		cfg.Server.WSPingInterval = opts.wsPingInterval
	}
	if flags.Changed("capture-dir") {
		cfg.Capture.Dir = opts.captureDir
	}
	if flags.Changed("capture-db") {
		cfg.Capture.DB = opts.captureDB
	}
	if flags.Changed("max-connections") {
		cfg.Limits.MaxConnections = opts.maxConnections
	}
	if flags.Changed("accept-rate") {
		cfg.Limits.AcceptRate = opts.acceptRate
	}
	if flags.Changed("accept-burst") {
		cfg.Limits.AcceptBurst = opts.acceptBurst
	}
	if flags.Changed("advertise") {
		cfg.Advertise.Enabled = opts.advertise
	}
	if flags.Changed("advertise-instance") {
		cfg.Advertise.Instance = opts.advertiseInstance
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadConfigFile reads --config, which must exist when given, or the default
// path, which may be missing.
func loadConfigFile(flags *pflag.FlagSet, opts *rootOptions) (*config.Config, error) {
	if flags.Changed("config") {
		return config.Load(opts.configPath)
	}
	path, err := config.DefaultPath()
	if err != nil {
		return config.Default(), nil
	}
	return config.LoadOrDefault(path)
}

func runServer(cfg *config.Config) error {
	if err := logging.Initialize(cfg.Log.Level); err != nil {
		return err
	}
	defer logging.Sync()

	rec, err := capture.Open(cfg.Capture.Dir, cfg.Capture.DB)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}

	srv, err := server.New(server.ConfigFrom(cfg, rec))
	if err != nil {
		_ = rec.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

func defaultPathHint() string {
	path, err := config.DefaultPath()
	if err != nil {
		return "none"
	}
	return path
}
