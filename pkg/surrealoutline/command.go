package surrealoutline

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/outline"
)

// appAction is a command body run against a freshly opened App.
type appAction func(ctx context.Context, app *App, cctx *cli.Context) error

// withApp parses the global configuration, opens the App for the duration of one
// command and closes it afterwards. The metrics file is written even when the command
// fails.
func withApp(fn appAction) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		config, err := Parse(cctx)
		if err != nil {
			return fmt.Errorf("failed to parse configuration: %w", err)
		}
		app, err := New(config, cctx.App.Writer, cctx.App.ErrWriter)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		defer app.Close()
		err = fn(cctx.Context, app, cctx)
		if merr := app.WriteMetrics(); merr != nil {
			err = errors.Join(err, merr)
		}
		return err
	}
}

func newIndexFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "index",
		Usage: "position among the new siblings; negative appends",
		Value: -1,
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "migrate",
			Usage:  "create or update the database tables",
			Action: withApp(runMigrate),
		},
		{
			Name:   "demo",
			Usage:  "create a page with a block and a child block and print it",
			Action: withApp(runDemo),
		},
		{
			Name:   "pages",
			Usage:  "list pages",
			Action: withApp(runPages),
		},
		{
			Name:      "new-page",
			Usage:     "create an empty page and print its id",
			ArgsUsage: "<title>",
			Action:    withApp(runNewPage),
		},
		{
			Name:      "title",
			Usage:     "change the title of a page",
			ArgsUsage: "<page> <title>",
			Action:    withApp(runTitle),
		},
		{
			Name:      "print",
			Usage:     "print the outline of a page",
			ArgsUsage: "<page>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "ids", Usage: "prefix every block with its id"},
			},
			Action: withApp(runPrint),
		},
		{
			Name:   "check",
			Usage:  "build every page and report integrity errors and wrong root blocks",
			Action: withApp(runCheck),
		},
		{
			Name:      "reconcile",
			Usage:     "store the root block derived from the blocks, for the given pages or all",
			ArgsUsage: "[page...]",
			Action:    withApp(runReconcile),
		},
		{
			Name:      "insert",
			Usage:     "insert a block and print its id; parent may be 'root'",
			ArgsUsage: "<page> <parent> <content>",
			Flags:     []cli.Flag{newIndexFlag()},
			Action:    withApp(runInsert),
		},
		{
			Name:      "move",
			Usage:     "move a block with its subtree under a new parent",
			ArgsUsage: "<page> <block> <parent>",
			Flags:     []cli.Flag{newIndexFlag()},
			Action:    withApp(runMove),
		},
		{
			Name:      "remove",
			Usage:     "remove a block and print the removed ids",
			ArgsUsage: "<page> <block>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "policy",
					Usage: "what happens to children: keep (fail if any), promote, delete-subtree",
					Value: outline.Keep.String(),
				},
			},
			Action: withApp(runRemove),
		},
		{
			Name:      "rename",
			Usage:     "replace the content of a block",
			ArgsUsage: "<page> <block> <content>",
			Action:    withApp(runRename),
		},
		{
			Name:      "reorder",
			Usage:     "reorder the children of a block",
			ArgsUsage: "<page> <parent> <child>...",
			Action:    withApp(runReorder),
		},
		{
			Name:      "export",
			Usage:     "write a page snapshot, CBOR or JSON by file extension",
			ArgsUsage: "<page> <file>",
			Action:    withApp(runExport),
		},
		{
			Name:      "import",
			Usage:     "create a page from a snapshot and print its id",
			ArgsUsage: "<file>",
			Action:    withApp(runImport),
		},
	}
}

func runMigrate(ctx context.Context, app *App, cctx *cli.Context) error {
	return app.Migrate(ctx)
}

func runDemo(ctx context.Context, app *App, cctx *cli.Context) error {
	return app.Demo(ctx)
}

func runPages(ctx context.Context, app *App, cctx *cli.Context) error {
	return app.ListPages(ctx)
}

func runNewPage(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 1); err != nil {
		return err
	}
	return app.NewPage(ctx, cctx.Args().First())
}

func runTitle(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 2); err != nil {
		return err
	}
	id, err := pageArg(cctx, 0)
	if err != nil {
		return err
	}
	return app.Retitle(ctx, id, cctx.Args().Get(1))
}

func runPrint(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 1); err != nil {
		return err
	}
	id, err := pageArg(cctx, 0)
	if err != nil {
		return err
	}
	return app.Print(ctx, id, cctx.Bool("ids"))
}

func runCheck(ctx context.Context, app *App, cctx *cli.Context) error {
	return app.Check(ctx)
}

func runReconcile(ctx context.Context, app *App, cctx *cli.Context) error {
	var ids []models.PageID
	for i := range cctx.NArg() {
		id, err := pageArg(cctx, i)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return app.Reconcile(ctx, ids)
}

func runInsert(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 3); err != nil {
		return err
	}
	id, err := pageArg(cctx, 0)
	if err != nil {
		return err
	}
	parent, err := blockArg(cctx, 1)
	if err != nil {
		return err
	}
	return app.Insert(ctx, id, parent, indexFlag(cctx), cctx.Args().Get(2))
}

func runMove(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 3); err != nil {
		return err
	}
	id, err := pageArg(cctx, 0)
	if err != nil {
		return err
	}
	block, err := blockArg(cctx, 1)
	if err != nil {
		return err
	}
	parent, err := blockArg(cctx, 2)
	if err != nil {
		return err
	}
	return app.Move(ctx, id, block, parent, indexFlag(cctx))
}

func runRemove(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 2); err != nil {
		return err
	}
	id, err := pageArg(cctx, 0)
	if err != nil {
		return err
	}
	block, err := blockArg(cctx, 1)
	if err != nil {
		return err
	}
	policy, err := outline.ParseRemovePolicy(cctx.String("policy"))
	if err != nil {
		return err
	}
	return app.Remove(ctx, id, block, policy)
}

func runRename(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 3); err != nil {
		return err
	}
	id, err := pageArg(cctx, 0)
	if err != nil {
		return err
	}
	block, err := blockArg(cctx, 1)
	if err != nil {
		return err
	}
	return app.Rename(ctx, id, block, cctx.Args().Get(2))
}

func runReorder(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 2); err != nil {
		return err
	}
	id, err := pageArg(cctx, 0)
	if err != nil {
		return err
	}
	parent, err := blockArg(cctx, 1)
	if err != nil {
		return err
	}
	var order []models.BlockID
	for i := 2; i < cctx.NArg(); i++ {
		child, err := blockArg(cctx, i)
		if err != nil {
			return err
		}
		order = append(order, child)
	}
	return app.Reorder(ctx, id, parent, order)
}

func runExport(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 2); err != nil {
		return err
	}
	id, err := pageArg(cctx, 0)
	if err != nil {
		return err
	}
	return app.Export(ctx, id, cctx.Args().Get(1))
}

func runImport(ctx context.Context, app *App, cctx *cli.Context) error {
	if err := expectArgs(cctx, 1); err != nil {
		return err
	}
	return app.Import(ctx, cctx.Args().First())
}
