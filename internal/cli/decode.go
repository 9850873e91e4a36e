package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type decodeOpts struct {
	format string
	output string
	find   bool
}

// decodeCommand creates the decode command.
func (c *CLI) decodeCommand() *cobra.Command {
	var opts decodeOpts

	cmd := &cobra.Command{
		Use:   "decode [string|-]",
		Short: "Decode a blueprint string into a JSON or YAML document",
		Example: `  bpedit decode 0eNqV...
  pbpaste | bpedit decode --format yaml -o lamp.yaml
  bpedit decode --find < forum-post.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDecode(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format: json or yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&opts.find, "find", false, "extract the blueprint string from surrounding text first")

	return cmd
}

func (c *CLI) runDecode(cmd *cobra.Command, args []string, opts decodeOpts) error {
	if opts.format != formatJSON && opts.format != formatYAML {
		return fmt.Errorf("unknown format %q (want json or yaml)", opts.format)
	}
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	s, err := readEnvelope(cmd, args)
	if err != nil {
		return err
	}
	codec, err := c.asyncCodec("")
	if err != nil {
		return err
	}
	if opts.find {
		found, ok := codec.Find(ctx, s)
		if !ok {
			return fmt.Errorf("no blueprint string found in input")
		}
		s = found
	}

	doc, err := codec.DecodeDocument(ctx, s)
	if err != nil {
		return err
	}
	data, err := doc.JSON(true)
	if err != nil {
		return err
	}
	if opts.format == formatYAML {
		if data, err = jsonToYAML(data); err != nil {
			return err
		}
	}
	logger.Debug("decoded", "item", doc.Item, "version", doc.Version, "bytes", len(data))

	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(ensureNewline(data))
		return err
	}
	if err := os.WriteFile(opts.output, ensureNewline(data), 0o644); err != nil {
		return err
	}
	printSuccess("Decoded %s", doc.Item)
	printFile(opts.output)
	return nil
}

// jsonToYAML converts a JSON document to block-style YAML, keeping key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style = 0
	}
	for _, child := range n.Content {
		blockStyle(child)
	}
}

func ensureNewline(b []byte) []byte {
	if len(b) == 0 || b[len(b)-1] != '\n' {
		return append(b, '\n')
	}
	return b
}
