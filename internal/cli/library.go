package cli

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/store"
)

// libraryCommand creates the blueprint library command.
func (c *CLI) libraryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"lib"},
		Short:   "Keep blueprint strings in the configured store",
		Long: `Library saves blueprint strings under a key in the store configured in the
[store] section: local files (default), Redis or MongoDB.`,
	}

	cmd.AddCommand(c.librarySaveCommand())
	cmd.AddCommand(c.libraryLoadCommand())
	cmd.AddCommand(c.libraryListCommand())
	cmd.AddCommand(c.libraryDeleteCommand())

	return cmd
}

// withStore opens the store, shows a spinner for remote backends while fn
// runs, and closes the store.
func (c *CLI) withStore(ctx context.Context, message string, fn func(store.Store) error) error {
	backend := c.settings().Store.Backend
	remote := backend == store.BackendRedis || backend == store.BackendMongo
	return spin(ctx, remote, message, func(ctx context.Context) (err error) {
		s, err := c.openStore(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := s.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(s)
	})
}

// librarySaveCommand creates the "library save" subcommand.
func (c *CLI) librarySaveCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "save [string|-]",
		Short: "Save a blueprint string",
		Long:  `Save stores a blueprint string. The key defaults to the item's label, lowercased with spaces replaced by dashes.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := readEnvelope(cmd, args)
			if err != nil {
				return err
			}
			codec, err := c.asyncCodec("")
			if err != nil {
				return err
			}
			info, err := codec.Inspect(ctx, s)
			if err != nil {
				return err
			}
			if key == "" {
				key = slugify(info.Label)
			}
			if key == "" {
				return bperrors.New(bperrors.ErrCodeInvalidKey, "item has no label, pass --key")
			}
			entry := store.NewEntry(key, info.Label, info.Kind, s)
			err = c.withStore(ctx, "Saving...", func(st store.Store) error {
				return st.Set(ctx, entry)
			})
			if err != nil {
				return err
			}
			printSuccess("Saved %s", StyleHighlight.Render(key))
			printDetail("%s, %d entities", info.Kind, info.Entities)
			printNextStep("Load it with", "bpedit library load "+key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "library key (default derived from the label)")
	return cmd
}

// libraryLoadCommand creates the "library load" subcommand.
func (c *CLI) libraryLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <key>",
		Short: "Print a saved blueprint string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				entry store.Entry
				found bool
			)
			err := c.withStore(ctx, "Loading...", func(st store.Store) error {
				var err error
				entry, found, err = st.Get(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}
			if !found {
				return bperrors.New(bperrors.ErrCodeNotFound, "no library entry %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), entry.Envelope)
			return nil
		},
	}
}

// libraryListCommand creates the "library list" subcommand.
func (c *CLI) libraryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved blueprints",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var entries []store.Entry
			err := c.withStore(ctx, "Listing...", func(st store.Store) error {
				var err error
				entries, err = st.List(ctx)
				return err
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("Library is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderLibrary(entries, time.Now()))
			return nil
		},
	}
}

// libraryDeleteCommand creates the "library delete" subcommand.
func (c *CLI) libraryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>...",
		Aliases: []string{"rm"},
		Short:   "Delete saved blueprints",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			err := c.withStore(ctx, "Deleting...", func(st store.Store) error {
				for _, key := range args {
					if err := st.Delete(ctx, key); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			printSuccess("Deleted %d entries", len(args))
			return nil
		},
	}
}

func renderLibrary(entries []store.Entry, now time.Time) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		label := e.Label
		if label == "" {
			label = "-"
		}
		rows[i] = []string{e.Key, e.Kind, label, formatAge(now, e.UpdatedAt), shortHash(e.Hash)}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorFaint)).
		Headers("Key", "Kind", "Label", "Updated", "Hash").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleHighlight
			case col >= 3:
				return StyleDim
			}
			return StyleValue
		}).
		Render()
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9._-]+`)

// slugify derives a store key from a label.
func slugify(label string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(label), "-")
	s = strings.Trim(s, "-._")
	if len(s) > 64 {
		s = strings.TrimRight(s[:64], "-._")
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func formatAge(now, t time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
