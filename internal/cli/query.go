package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/matzehuels/bpedit/pkg/bpstring"
)

type queryOpts struct {
	set    string
	delete bool
	raw    bool
}

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	var opts queryOpts

	cmd := &cobra.Command{
		Use:   "query <path> [string|-]",
		Short: "Query or change a blueprint string's document by path",
		Long: `Query evaluates a GJSON path against the decoded document and prints the
result. With --set or --delete the document is changed at the path instead,
validated, and re-encoded.

Paths use GJSON syntax: blueprint.label, blueprint.entities.#,
blueprint.entities.#(name=="small-lamp")#.entity_number.`,
		Example: `  bpedit query blueprint.entities.# "$S"
  bpedit query blueprint_book.blueprints.#.blueprint.label "$S"
  bpedit query blueprint.label --set '"Smelting"' "$S"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, args[0], args[1:], opts)
		},
	}

	cmd.Flags().StringVar(&opts.set, "set", "", "set the path to this JSON value (bare words are strings)")
	cmd.Flags().BoolVar(&opts.delete, "delete", false, "delete the path")
	cmd.Flags().BoolVarP(&opts.raw, "raw", "r", false, "print string results without quotes")

	return cmd
}

func (c *CLI) runQuery(cmd *cobra.Command, path string, args []string, opts queryOpts) error {
	ctx := cmd.Context()
	s, err := readEnvelope(cmd, args)
	if err != nil {
		return err
	}
	codec, err := c.asyncCodec("")
	if err != nil {
		return err
	}
	doc, err := codec.DecodeDocument(ctx, s)
	if err != nil {
		return err
	}
	data, err := doc.JSON(false)
	if err != nil {
		return err
	}

	if opts.set == "" && !opts.delete {
		res := gjson.GetBytes(data, path)
		if !res.Exists() {
			return fmt.Errorf("path %q matches nothing", path)
		}
		out := res.Raw
		if opts.raw && res.Type == gjson.String {
			out = res.Str
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}

	changed, err := applyPath(data, path, opts)
	if err != nil {
		return err
	}
	next, err := bpstring.ParseDocument(changed)
	if err != nil {
		return err
	}
	out, err := codec.EncodeDocument(ctx, next)
	if err != nil {
		return err
	}
	loggerFromContext(ctx).Debug("document changed", "path", path, "delete", opts.delete)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func applyPath(data []byte, path string, opts queryOpts) ([]byte, error) {
	if opts.delete {
		if !gjson.GetBytes(data, path).Exists() {
			return nil, fmt.Errorf("path %q matches nothing", path)
		}
		return sjson.DeleteBytes(data, path)
	}
	if gjson.Valid(opts.set) {
		return sjson.SetRawBytes(data, path, []byte(opts.set))
	}
	return sjson.SetBytes(data, path, opts.set)
}
