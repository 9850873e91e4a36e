package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// findCommand creates the find command.
func (c *CLI) findCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find [file|-]",
		Short: "Extract the first valid blueprint string from text",
		Long: `Find scans free text (a chat message, a forum post, a web page) for
blueprint strings and prints the longest one that decodes. It exits with an
error when the text holds none.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) > 0 {
				path = args[0]
			}
			data, err := readFile(cmd, path)
			if err != nil {
				return err
			}
			codec, err := c.asyncCodec("")
			if err != nil {
				return err
			}
			s, ok := codec.Find(cmd.Context(), string(data))
			if !ok {
				return fmt.Errorf("no blueprint string found")
			}
			loggerFromContext(cmd.Context()).Debug("found blueprint string", "size", len(s))
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
