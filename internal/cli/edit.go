package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bpedit/pkg/bpstring"
	"github.com/matzehuels/bpedit/pkg/session"
)

type editOpts struct {
	script   string
	fresh    bool
	scheme   string
	quickbar string
	history  bool
}

// editCommand creates the edit command.
func (c *CLI) editCommand() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "edit [string|-] --script ops.toml",
		Short: "Apply a script of edits to a blueprint string",
		Long: `Edit loads a blueprint string (or a book, editing its active blueprint),
applies the operations of a TOML script through the undo history, and prints
the resulting string.

Each [[op]] table names an op: create, move, update, delete, connect,
disconnect, tile, remove-tile, begin, commit, rollback, undo, redo, pipette,
place, slot or pick. Consecutive edits without begin/commit form one
transaction per edit.`,
		Example: `  bpedit edit "$S" --script grid.toml
  bpedit edit --new --script grid.toml --history`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.script, "script", "s", "", "TOML script of edit operations")
	cmd.Flags().BoolVar(&opts.fresh, "new", false, "start from an empty blueprint instead of reading a string")
	cmd.Flags().StringVar(&opts.scheme, "scheme", "", "compression scheme for the output string")
	cmd.Flags().StringVar(&opts.quickbar, "quickbar", "", "quickbar file (default $XDG_CONFIG_HOME/bpedit/quickbar.json)")
	cmd.Flags().BoolVar(&opts.history, "history", false, "print the history annotations")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func (c *CLI) runEdit(cmd *cobra.Command, args []string, opts editOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	data, err := os.ReadFile(opts.script)
	if err != nil {
		return err
	}
	script, err := parseScript(data)
	if err != nil {
		return err
	}

	codecOpts, err := c.codecOptions(opts.scheme)
	if err != nil {
		return err
	}
	qs, err := session.NewQuickbarStore(opts.quickbar)
	if err != nil {
		return err
	}
	quickbar, err := qs.Load()
	if err != nil {
		return err
	}

	sess := session.New(
		session.WithLogger(logger),
		session.WithCodecs(bpstring.NewAsync(codecOpts...), bpstring.NewSync(codecOpts...)),
		session.WithHistory(c.settings().HistoryOptions()...),
		session.WithQuickbar(quickbar),
	)
	if !opts.fresh {
		text, err := readEnvelope(cmd, args)
		if err != nil {
			return err
		}
		if err := sess.Load(ctx, text); err != nil {
			return err
		}
	}
	logger.Debug("session started", "session", sess.ID, "ops", len(script.Ops))

	res, err := runScript(sess, script)
	if err != nil {
		return err
	}
	for _, st := range res.Steps {
		printStep(st.Undo, st.Annotation)
	}
	if res.QuickbarChanged {
		if err := qs.Save(sess.Quickbar); err != nil {
			return err
		}
		printDetail("Quickbar saved to %s", qs.Path())
	}

	out, err := sess.Copy(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	h := sess.Blueprint.History()
	g := sess.Blueprint.Graph()
	printSuccess("Applied %d ops", len(script.Ops))
	printStats(statsOf(g))
	if opts.history {
		for i, a := range h.Annotations() {
			marker := " "
			if i == h.Cursor()-1 {
				marker = "*"
			}
			printDetail("%s %d %s", marker, i+1, a)
		}
	}
	return nil
}
