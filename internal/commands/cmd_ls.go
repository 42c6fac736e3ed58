package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/printer"
)

type LsCmd struct {
	flags *Flags
	match string
	kind  string
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "ls",
		Usage:       "List conversations",
		UsageText:   "lobby ls [--match <glob>] [--kind p2p|group]",
		Description: "Displays the locally loaded conversations, most recently active first.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "only list conversations whose name or alias matches a glob",
				Destination: &cmd.match,
			},
			&cli.StringFlag{
				Name:        "kind",
				Usage:       "only list conversations of a kind (p2p, group)",
				Destination: &cmd.kind,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	st, err := cmd.flags.Store().Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	convs, err := filterConversations(st, cmd.flags.Config.Aliases, cmd.match, chat.Kind(cmd.kind))
	if err != nil {
		return err
	}

	if len(convs) == 0 {
		if len(st.Conversations) == 0 {
			p.Infof("No conversations loaded. Run 'lobby sync' first")
		} else {
			p.Infof("No conversations match")
		}
		return nil
	}

	aliases := invert(cmd.flags.Config.Aliases)

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tKIND\tMESSAGES\tPINNED\tLAST\tID")

	for _, conv := range convs {
		name := st.DisplayName(conv.ID)
		if alias, ok := aliases[conv.ID]; ok {
			name += " (" + alias + ")"
		}

		last := "-"
		if n := len(conv.Messages); n > 0 {
			last = st.Messages[conv.Messages[n-1]].Timestamp.Local().Format(timeLayout)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", name, conv.Kind, len(conv.Messages), len(conv.Pinned), last, conv.ID)
	}

	return w.Flush()
}

// filterConversations returns the conversations of st matching a glob on the
// display name or alias and an optional kind.
func filterConversations(st chat.State, aliases map[string]string, pattern string, kind chat.Kind) ([]chat.Conversation, error) {
	switch kind {
	case "", chat.KindP2P, chat.KindGroup:
	default:
		return nil, fmt.Errorf("unknown kind %q (want p2p or group)", kind)
	}
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	byID := invert(aliases)

	var out []chat.Conversation
	for _, conv := range st.List() {
		if kind != "" && conv.Kind != kind {
			continue
		}
		if pattern != "" && !matchAny(pattern, st.DisplayName(conv.ID), byID[conv.ID]) {
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

func matchAny(pattern string, names ...string) bool {
	for _, name := range names {
		if name == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func invert(aliases map[string]string) map[string]string {
	out := make(map[string]string, len(aliases))
	for name, id := range aliases {
		if prev, ok := out[id]; !ok || name < prev {
			out[id] = name
		}
	}
	return out
}
