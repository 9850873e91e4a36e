package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/bpedit/pkg/bpstring"
)

type encodeOpts struct {
	scheme string
	sync   bool
}

// encodeCommand creates the encode command.
func (c *CLI) encodeCommand() *cobra.Command {
	var opts encodeOpts

	cmd := &cobra.Command{
		Use:   "encode [file.json...]",
		Short: "Encode JSON documents into blueprint strings",
		Long: `Encode reads blueprint or book JSON documents and prints one blueprint
string per document, in argument order. With no arguments (or "-") the
document is read from stdin. Multiple documents are encoded concurrently.`,
		Example: `  bpedit encode lamp.json
  bpedit encode --scheme deflate a.json b.json
  bpedit decode "$S" | bpedit encode --sync`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			return c.runEncode(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.scheme, "scheme", "", "compression scheme: game, zlib or deflate (default from config)")
	cmd.Flags().BoolVar(&opts.sync, "sync", false, "encode on the calling goroutine with the sync codec")

	return cmd
}

func (c *CLI) runEncode(cmd *cobra.Command, paths []string, opts encodeOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	codecOpts, err := c.codecOptions(opts.scheme)
	if err != nil {
		return err
	}

	docs := make([]*bpstring.Document, len(paths))
	for i, p := range paths {
		data, err := readFile(cmd, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		doc, err := bpstring.ParseDocument(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		docs[i] = doc
	}

	prog := newProgress(logger)
	var out []string
	if opts.sync {
		out, err = encodeSync(docs, bpstring.NewSync(codecOpts...))
	} else {
		out, err = encodeAsync(ctx, docs, bpstring.NewAsync(codecOpts...))
	}
	if err != nil {
		return err
	}
	for _, s := range out {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	prog.done("encoded documents", "count", len(out))
	return nil
}

func encodeSync(docs []*bpstring.Document, codec *bpstring.Sync) ([]string, error) {
	out := make([]string, len(docs))
	for i, doc := range docs {
		it, err := doc.Model()
		if err != nil {
			return nil, err
		}
		res := codec.EncodeSync(it)
		if !res.OK() {
			return nil, res.Err
		}
		out[i] = res.Value
	}
	return out, nil
}

func encodeAsync(ctx context.Context, docs []*bpstring.Document, codec *bpstring.Async) ([]string, error) {
	out := make([]string, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		g.Go(func() error {
			s, err := codec.EncodeDocument(ctx, doc)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
