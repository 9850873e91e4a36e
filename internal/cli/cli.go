// Package cli implements the bpedit command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bpedit/pkg/bpstring"
	"github.com/matzehuels/bpedit/pkg/buildinfo"
	"github.com/matzehuels/bpedit/pkg/config"
	"github.com/matzehuels/bpedit/pkg/observability"
	"github.com/matzehuels/bpedit/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "bpedit"

	// metricsNamespace prefixes every exported metric.
	metricsNamespace = "bpedit"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	metricsOut string
	verbose    bool

	cfg     *config.Config
	metrics *observability.Prometheus
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "bpedit reads, edits and writes blueprint strings",
		Long: `bpedit decodes blueprint strings into JSON documents, edits blueprints with
full undo history, and encodes them back into strings the game accepts.`,
		Version:           buildinfo.Get().Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.writeMetrics()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/bpedit/config.toml)")
	root.PersistentFlags().StringVar(&c.metricsOut, "metrics-out", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(c.encodeCommand())
	root.AddCommand(c.decodeCommand())
	root.AddCommand(c.findCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.queryCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.libraryCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration, applies the log level and installs metrics.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	path, err := c.resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := cfg.LogLevel()
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	c.Logger.Debug("config loaded", "path", path, "scheme", cfg.Codec.Scheme, "store", cfg.Store.Backend)

	if c.metricsOut != "" {
		p, err := observability.NewPrometheus(metricsNamespace)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		p.Install()
		c.metrics = p
	}

	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

func (c *CLI) writeMetrics() error {
	if c.metrics == nil {
		return nil
	}
	defer observability.Reset()
	f, err := os.Create(c.metricsOut)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.metrics.WriteText(f); err != nil {
		f.Close()
		return fmt.Errorf("metrics: %w", err)
	}
	c.Logger.Debug("metrics written", "path", c.metricsOut)
	return f.Close()
}

func (c *CLI) resolveConfigPath() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.Path()
}

// settings returns the loaded configuration, or the defaults when a command
// runs without the root's pre-run (tests calling subcommands directly).
func (c *CLI) settings() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Codec & Store Factories
// =============================================================================

// codecOptions returns the configured codec options, with a non-empty scheme
// overriding the configuration.
func (c *CLI) codecOptions(scheme string) ([]bpstring.Option, error) {
	opts := c.settings().CodecOptions()
	if scheme != "" {
		s, err := bpstring.ParseScheme(scheme)
		if err != nil {
			return nil, err
		}
		opts = append(opts, bpstring.WithScheme(s))
	}
	return opts, nil
}

func (c *CLI) asyncCodec(scheme string) (*bpstring.Async, error) {
	opts, err := c.codecOptions(scheme)
	if err != nil {
		return nil, err
	}
	return bpstring.NewAsync(opts...), nil
}

func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, c.settings().Store, store.WithLogger(c.Logger))
}

// =============================================================================
// Input Helpers
// =============================================================================

// readEnvelope returns args[0], or stdin when args is empty or "-".
func readEnvelope(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "", fmt.Errorf("no input on stdin")
	}
	return s, nil
}

// readFile reads path, or stdin for "" and "-".
func readFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
