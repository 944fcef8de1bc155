package surrealoutline

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// Main is the entry point of the surrealoutline binary. It loads .env from the working
// directory, when present, and runs the command named by args.
//
// # Command Line Usage
//
//	surrealoutline migrate                          # create the tables
//	surrealoutline demo                             # create and print a small page
//	surrealoutline new-page "Reading list"          # prints the page id
//	surrealoutline insert 1 root "Books"            # prints the block id
//	surrealoutline insert --index 0 1 1 "Dune"
//	surrealoutline print --ids 1
//	surrealoutline move 1 2 root
//	surrealoutline remove --policy promote 1 1
//	surrealoutline check                            # fails if any page is corrupt
//	surrealoutline reconcile                        # repair stored root blocks
//	surrealoutline export 1 page.cbor
//	surrealoutline import page.cbor
//
// # Environment Variables
//
//	OUTLINE_DATABASE_URL   - store to use (default: sqlite://surrealoutline.db)
//	OUTLINE_LOG_LEVEL      - trace, debug, info, warn or error (default: warn)
//	OUTLINE_LOG_FILE       - append logs to this file instead of stderr
//	OUTLINE_READ_ONLY      - reject every write
//	OUTLINE_CACHE_SIZE     - pages kept in memory (default: 256)
//	OUTLINE_JOBS           - pages built in parallel by check (default: 4)
//	OUTLINE_SLOW_THRESHOLD - log slower statements at warn level
//	OUTLINE_METRICS_FILE   - write Prometheus metrics here when the command ends
func Main(ctx context.Context, args []string) error {
	if err := loadDotEnv(); err != nil {
		return err
	}
	return Run(ctx, append([]string{"surrealoutline"}, args...), os.Stdout, os.Stderr)
}

// Run runs the command line app with args, where args[0] is the program name. Command
// output goes to stdout, logs and usage errors to stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	app := &cli.App{
		Name:      "surrealoutline",
		Usage:     "outline pages stored as block rows",
		Flags:     globalFlags(),
		Commands:  commands(),
		Writer:    stdout,
		ErrWriter: stderr,
		// errors are returned to the caller, never turned into os.Exit
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return app.RunContext(ctx, args)
}
