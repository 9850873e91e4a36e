package cli

import (
	"context"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bpedit/pkg/bpstring"
	"github.com/matzehuels/bpedit/pkg/config"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-validate a blueprint file whenever it changes",
		Long: `Watch finds and decodes the blueprint string in a file each time the file
is saved, printing a summary or the decode error. Changes to the config file
(codec limits, scheme) are picked up without restarting. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args[0])
		},
	}
}

func (c *CLI) runWatch(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	var (
		mu    sync.Mutex
		codec = bpstring.NewAsync(c.settings().CodecOptions()...)
	)

	cfgPath, err := c.resolveConfigPath()
	if err != nil {
		return err
	}
	cw, err := config.NewWatcher(cfgPath, logger)
	if err != nil {
		return err
	}
	defer cw.Close()
	cw.OnChange(func(cfg *config.Config) {
		mu.Lock()
		codec = bpstring.NewAsync(cfg.CodecOptions()...)
		mu.Unlock()
	})

	check := func() {
		mu.Lock()
		cc := codec
		mu.Unlock()
		c.checkFile(ctx, cc, path)
	}

	check()
	printDetail("Watching %s", path)
	return config.WatchFile(ctx, path, config.DefaultDebounce, check)
}

// checkFile decodes the blueprint string in path and reports the outcome.
func (c *CLI) checkFile(ctx context.Context, codec *bpstring.Async, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		printError("%s: %v", path, err)
		return
	}
	s, ok := codec.Find(ctx, string(data))
	if !ok {
		printWarning("%s: no valid blueprint string", path)
		return
	}
	info, err := codec.Inspect(ctx, s)
	if err != nil {
		printError("%s: %v", path, err)
		return
	}
	label := info.Label
	if label == "" {
		label = info.Kind
	}
	printSuccess("%s: %s", path, label)
	printStats(blueprintStats{Entities: info.Entities, Tiles: info.Tiles})
}
