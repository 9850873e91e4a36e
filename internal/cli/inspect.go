package cli

import (
	"fmt"
	"io"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bpedit/pkg/blueprint"
	"github.com/matzehuels/bpedit/pkg/bpstring"
)

type inspectOpts struct {
	index       int
	interactive bool
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	opts := inspectOpts{index: -1}

	cmd := &cobra.Command{
		Use:   "inspect [string|-]",
		Short: "Summarize a blueprint string",
		Long: `Inspect prints the envelope framing and a summary of the item it carries.

For books, --index selects one blueprint (depth-first numbering) and prints
its string, and --interactive opens a picker that does the same.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.index, "index", -1, "extract the blueprint at this index of a book")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick a blueprint of a book interactively")

	return cmd
}

func (c *CLI) runInspect(cmd *cobra.Command, args []string, opts inspectOpts) error {
	ctx := cmd.Context()
	s, err := readEnvelope(cmd, args)
	if err != nil {
		return err
	}
	codec, err := c.asyncCodec("")
	if err != nil {
		return err
	}

	if opts.index < 0 && !opts.interactive {
		info, err := codec.Inspect(ctx, s)
		if err != nil {
			return err
		}
		printEnvelopeInfo(cmd.OutOrStdout(), info)
		return nil
	}

	it, err := codec.Decode(ctx, s)
	if err != nil {
		return err
	}
	book, ok := it.(*blueprint.Book)
	if !ok {
		return fmt.Errorf("--index and --interactive need a blueprint book, got a %s", it.Kind())
	}

	var bp *blueprint.Blueprint
	if opts.interactive {
		bp, err = pickBlueprint(cmd, book)
		if err != nil || bp == nil {
			return err
		}
	} else {
		entries := bookEntries(book)
		if opts.index >= len(entries) {
			return fmt.Errorf("index %d out of range: book holds %d blueprints", opts.index, len(entries))
		}
		bp = entries[opts.index].Blueprint
	}

	g := bp.Graph()
	printSuccess("Selected %q", bp.Meta().Label)
	printStats(statsOf(g))

	out, err := codec.Encode(ctx, bp)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func pickBlueprint(cmd *cobra.Command, book *blueprint.Book) (*blueprint.Blueprint, error) {
	p := tea.NewProgram(NewBlueprintListModel(book),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(statusOut),
	)
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(BlueprintListModel)
	if m.Selected == nil {
		printWarning("Nothing selected")
		return nil, nil
	}
	return m.Selected.Blueprint, nil
}

func printEnvelopeInfo(w io.Writer, info bpstring.Info) {
	printKeyValue(w, "Kind", info.Kind)
	if info.Label != "" {
		printKeyValue(w, "Label", info.Label)
	}
	printKeyValue(w, "Scheme", fmt.Sprintf("%s (0x%02x)", info.Scheme, info.VersionByte))
	if info.Version != 0 {
		printKeyValue(w, "Version", formatGameVersion(info.Version))
	}
	if info.Kind == string(blueprint.KindBook) {
		printKeyValue(w, "Blueprints", strconv.Itoa(info.Blueprints))
	}
	printKeyValue(w, "Entities", strconv.Itoa(info.Entities))
	printKeyValue(w, "Tiles", strconv.Itoa(info.Tiles))
	printKeyValue(w, "Size", fmt.Sprintf("%d chars, %d bytes inflated", info.Size, info.PayloadSize))
}

// formatGameVersion renders the packed version number as
// major.minor.patch.build, 16 bits each.
func formatGameVersion(v uint64) string {
	return fmt.Sprintf("%d.%d.%d.%d", v>>48, v>>32&0xffff, v>>16&0xffff, v&0xffff)
}
