package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/internal/printer"
)

type SyncCmd struct {
	flags *Flags
}

// NewSyncCmd creates a new sync command
func NewSyncCmd(flags *Flags) *SyncCmd {
	return &SyncCmd{flags: flags}
}

// Register adds the sync command to the application
func (cmd *SyncCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sync",
		Usage:     "Load contacts, groups and the latest messages from the conductor",
		UsageText: "lobby sync",
		Description: `Fetches the latest data of every conversation and merges it into the local state.

Run this once before other commands, and again to pick up new conversations.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *SyncCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		if err := svc.Sync(ctx); err != nil {
			return err
		}

		st := svc.State()
		me, _ := st.Self()
		p.Successf("Synced as %s", me.Username)
		p.Infof("%d conversations, %d messages, %d contacts", len(st.Conversations), len(st.Messages), len(st.Contacts))
		return nil
	})
}
