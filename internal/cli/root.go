package cli

import (
	"context"
	"os"
)

// Execute runs the bpedit CLI with ctx and returns an error if the command
// fails. Logs go to stderr at info level until the configuration or
// --verbose says otherwise.
//
//	func main() {
//	    if err := cli.Execute(context.Background()); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context) error {
	c := New(os.Stderr, LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}
