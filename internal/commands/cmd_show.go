package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/printer"
)

type ShowCmd struct {
	flags  *Flags
	pinned bool
	last   int
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags) *ShowCmd {
	return &ShowCmd{flags: flags}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "show",
		Usage:       "Render the locally loaded timeline of a conversation",
		UsageText:   "lobby show <conversation> [--pinned] [--last n]",
		Description: "Prints loaded messages oldest first without contacting the conductor.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "pinned",
				Aliases:     []string{"p"},
				Usage:       "only show pinned messages",
				Destination: &cmd.pinned,
			},
			&cli.IntFlag{
				Name:        "last",
				Aliases:     []string{"n"},
				Usage:       "only show the newest n messages (0 for all)",
				Destination: &cmd.last,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one conversation")
	}
	convID := cmd.flags.Config.Resolve(c.Args().First())

	st, err := cmd.flags.Store().Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if _, ok := st.Conversation(convID); !ok {
		return fmt.Errorf("%w: %s", chat.ErrConversationNotFound, convID)
	}

	msgs := st.Timeline(convID)
	if cmd.pinned {
		msgs = st.PinnedOf(convID)
	}
	if cmd.last > 0 && len(msgs) > cmd.last {
		msgs = msgs[len(msgs)-cmd.last:]
	}

	renderTimeline(c.Root().Writer, st, convID, msgs)
	if cmd.pinned {
		printer.Ctx(ctx).Pinnedf("%d pinned message(s) in %s", len(msgs), st.DisplayName(convID))
	}
	return nil
}
