package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/develotters/wiretap/internal/capture"
	"github.com/develotters/wiretap/internal/client"
	"github.com/develotters/wiretap/internal/config"
	"github.com/develotters/wiretap/internal/discovery"
	"github.com/develotters/wiretap/internal/ui"
	"github.com/develotters/wiretap/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wiretap %s (commit: %s)\n", version.Version, version.Commit)
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default settings",
		Long: `Write a configuration file containing the built-in defaults.

The file goes to the path argument, the --config path, or the default location,
in that order. An existing file is only replaced with --force.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configTarget(cmd, opts, args)
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			}

			if err := config.Default().Save(path); err != nil {
				return err
			}

			ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration written", map[string]string{
				"Path": path,
			})
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	return configCmd
}

func configTarget(cmd *cobra.Command, opts *rootOptions, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cmd.Flags().Changed("config") {
		return opts.configPath, nil
	}
	return config.DefaultPath()
}

func newDiscoverCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find wiretap listeners on the local network",
		Long: `Browse mDNS for listeners started with --advertise and list them.

HTTP-mode listeners are shown with the WebSocket URL that 'wiretap client'
accepts.`,
		Example: `  # Browse for 5 seconds (default)
  wiretap discover

  # Quick scan
  wiretap discover --timeout 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := ui.NewPrinter(cmd.OutOrStdout())
			p.PrintHeader("Discover", "wiretap discover", map[string]string{
				"Service": discovery.ServiceType,
				"Timeout": timeout.String(),
			})

			scanner := discovery.NewScanner()
			scanner.Timeout = timeout

			services, err := scanner.Scan(cmd.Context())
			if err != nil {
				p.PrintError("Discovery failed", err, []string{
					"Check that multicast traffic is allowed on this network",
					"Try increasing --timeout for slower networks",
				})
				return fmt.Errorf("discovery failed: %w", err)
			}

			p.PrintServices(services)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultScanTimeout, "How long to browse")
	return cmd
}

func newClientCmd() *cobra.Command {
	var (
		connectTimeout time.Duration
		replyTimeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "client <ws-url>",
		Short: "Send messages to a WebSocket echo endpoint",
		Long: `Connect to a WebSocket endpoint such as 'wiretap --http' serves on /ws.

On a terminal this opens an interactive client: type a message, press Enter
to send it and watch the replies arrive. When stdin is not a terminal each
input line is sent as one message and each reply is printed on its own line.`,
		Example: `  # Interactive session
  wiretap client ws://localhost:8080/ws

  # Scripted
  printf 'hi\nthere\n' | wiretap client ws://localhost:8080/ws`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := client.Dial(cmd.Context(), args[0], connectTimeout)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			cmd.SilenceUsage = true

			if ui.IsInteractive() {
				return ui.RunClient(conn, conn.URL())
			}

			return client.RunLines(conn, cmd.InOrStdin(), cmd.OutOrStdout(), replyTimeout)
		},
	}
	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", config.DefaultConnectTimeout, "WebSocket handshake timeout")
	cmd.Flags().DurationVar(&replyTimeout, "reply-timeout", config.DefaultReadTimeout, "How long to wait for each reply in line mode (0 waits forever)")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "analyze <capture.jsonl>",
		Short: "Summarize a capture file written with --capture-dir",
		Long: `Read a JSONL capture file and print one line per connection with the
number of payloads, total bytes and how long the connection was active.

With --dump every payload is also printed as a hex dump.`,
		Example: `  wiretap analyze captures/capture-20260102-030405.jsonl
  wiretap analyze --dump captures/capture-20260102-030405.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := capture.ReadJSONL(args[0])
			if err != nil {
				return err
			}

			p := ui.NewPrinter(cmd.OutOrStdout())
			p.PrintCaptureSummary(capture.Summarize(records))
			if !dump {
				return nil
			}

			for i, rec := range records {
				payload, err := rec.Payload()
				if err != nil {
					return fmt.Errorf("record %d: invalid payload: %w", i+1, err)
				}
				p.Println("")
				p.Println(ui.SubtitleStyle.Render(fmt.Sprintf("#%d %s %s %s %d bytes",
					i+1, rec.Timestamp.Format("15:04:05.000"), rec.ConnID, rec.Kind, len(payload))))
				p.Println(hex.Dump(payload))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "Print a hex dump of every payload")
	return cmd
}
