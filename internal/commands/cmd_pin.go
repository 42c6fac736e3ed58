package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/internal/printer"
)

type PinCmd struct {
	flags *Flags
}

// NewPinCmd creates a new pin command.
func NewPinCmd(flags *Flags) *PinCmd {
	return &PinCmd{flags: flags}
}

// Register adds the pin command to the application.
func (cmd *PinCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "pin",
		Usage: "Manage pinned messages",
		Description: `Pins are shared with every participant of a conversation.

A message must be loaded locally before it can be pinned. Pinning a pinned
message or unpinning one that is not pinned changes nothing.`,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Pin a loaded message",
				UsageText: "lobby pin add <conversation> <message>",
				Action:    cmd.runToggle(true),
			},
			{
				Name:      "rm",
				Usage:     "Unpin a message",
				UsageText: "lobby pin rm <conversation> <message>",
				Action:    cmd.runToggle(false),
			},
			{
				Name:        "ls",
				Usage:       "Fetch and list the pinned messages of a conversation",
				UsageText:   "lobby pin ls <conversation>",
				Description: "Replaces the local pinned set with the conductor's.",
				Action:      cmd.runList,
			},
		},
	})

	return app
}

func (cmd *PinCmd) runToggle(pin bool) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.NArg() != 2 {
			return fmt.Errorf("expected a conversation and a message")
		}
		convID := cmd.flags.Config.Resolve(c.Args().First())
		msgID := c.Args().Get(1)

		return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
			p := printer.Ctx(ctx)
			if pin {
				if err := svc.Pin(ctx, convID, msgID); err != nil {
					return err
				}
				p.Successf("Pinned %s", msgID)
				return nil
			}

			if err := svc.Unpin(ctx, convID, msgID); err != nil {
				return err
			}
			p.Successf("Unpinned %s", msgID)
			return nil
		})
	}
}

func (cmd *PinCmd) runList(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one conversation")
	}
	convID := cmd.flags.Config.Resolve(c.Args().First())

	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		pinned, err := svc.PinnedMessages(ctx, convID)
		if err != nil {
			return err
		}
		if len(pinned) == 0 {
			printer.Ctx(ctx).Infof("No pinned messages")
			return nil
		}

		renderTimeline(c.Root().Writer, svc.State(), convID, pinned)
		printer.Ctx(ctx).Pinnedf("%d pinned message(s) in %s", len(pinned), svc.State().DisplayName(convID))
		return nil
	})
}
