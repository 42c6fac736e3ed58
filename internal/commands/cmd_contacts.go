package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/internal/printer"
)

type ContactsCmd struct {
	flags *Flags
}

// NewContactsCmd creates a new contacts command.
func NewContactsCmd(flags *Flags) *ContactsCmd {
	return &ContactsCmd{flags: flags}
}

// Register adds the contacts command to the application.
func (cmd *ContactsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "contacts",
		Usage: "List and remove contacts",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List added contacts with their current usernames",
				UsageText: "lobby contacts ls",
				Action:    cmd.runList,
			},
			{
				Name:        "rm",
				Usage:       "Remove agents from your contacts",
				UsageText:   "lobby contacts rm <agent...>",
				Description: "Agents may be given by id or by the alias of their direct conversation.",
				Action:      cmd.runRemove,
			},
		},
	})

	return app
}

func (cmd *ContactsCmd) runList(ctx context.Context, c *cli.Command) error {
	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		contacts, err := svc.Contacts(ctx)
		if err != nil {
			return err
		}
		if len(contacts) == 0 {
			printer.Ctx(ctx).Infof("No contacts")
			return nil
		}

		aliases := invert(cmd.flags.Config.Aliases)

		w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tALIAS\tID")
		for _, p := range contacts {
			alias := aliases[p.ID]
			if alias == "" {
				alias = "-"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.Username, alias, p.ID)
		}
		return w.Flush()
	})
}

func (cmd *ContactsCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected at least one agent")
	}

	ids := make([]string, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		ids = append(ids, cmd.flags.Config.Resolve(arg))
	}

	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		if err := svc.RemoveContacts(ctx, ids); err != nil {
			return err
		}
		printer.Ctx(ctx).Successf("Removed %d contact(s)", len(ids))
		return nil
	})
}
