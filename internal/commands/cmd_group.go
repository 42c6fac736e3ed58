package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/internal/printer"
)

type GroupCmd struct {
	flags *Flags
}

// NewGroupCmd creates a new group command.
func NewGroupCmd(flags *Flags) *GroupCmd {
	return &GroupCmd{flags: flags}
}

// Register adds the group command to the application.
func (cmd *GroupCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "group",
		Usage: "Manage group membership",
		Commands: []*cli.Command{
			{
				Name:        "rm-members",
				Usage:       "Remove agents from a group",
				UsageText:   "lobby group rm-members <group> <agent...>",
				Description: "Agents may be given by id or by the alias of their direct conversation.",
				Action:      cmd.runRemoveMembers,
			},
		},
	})

	return app
}

func (cmd *GroupCmd) runRemoveMembers(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected a group")
	}
	groupID := cmd.flags.Config.Resolve(c.Args().First())

	members := make([]string, 0, c.NArg()-1)
	for _, arg := range c.Args().Tail() {
		members = append(members, cmd.flags.Config.Resolve(arg))
	}

	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		if err := svc.RemoveMembers(ctx, groupID, members); err != nil {
			return err
		}
		printer.Ctx(ctx).Successf("Removed %d member(s) from %s", len(members), svc.State().DisplayName(groupID))
		return nil
	})
}
