package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/hay-kot/lobby/internal/printer"
)

type MsgCmd struct {
	flags *Flags

	size        int
	payloadType string

	replyTo string
	newP2P  bool
}

// NewMsgCmd creates a new msg command.
func NewMsgCmd(flags *Flags) *MsgCmd {
	return &MsgCmd{flags: flags}
}

// Register adds the msg command to the application.
func (cmd *MsgCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "msg",
		Usage: "Fetch, send and mark messages",
		Description: `Message commands operate on one conversation, given by id or config alias.

Fetched batches are merged into the local state in (timestamp, id) order, so
running a command twice never duplicates messages.`,
		Commands: []*cli.Command{
			cmd.nextCmd(),
			cmd.aroundCmd(),
			cmd.fillCmd(),
			cmd.sendCmd(),
			cmd.readCmd(),
		},
	})

	return app
}

func (cmd *MsgCmd) sizeFlag() cli.Flag {
	return &cli.IntFlag{
		Name:        "size",
		Aliases:     []string{"s"},
		Usage:       "messages per batch (default from config)",
		Destination: &cmd.size,
	}
}

func (cmd *MsgCmd) typeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "type",
		Aliases:     []string{"t"},
		Usage:       "payload filter (all, text, file, media)",
		Destination: &cmd.payloadType,
	}
}

func (cmd *MsgCmd) nextCmd() *cli.Command {
	return &cli.Command{
		Name:      "next",
		Usage:     "Fetch the batch before the oldest loaded message",
		UsageText: "lobby msg next <conversation> [--size n] [--type t]",
		Description: `Fetches up to --size messages strictly older than the oldest loaded one,
or the latest messages when nothing is loaded yet. An empty batch marks the
conversation as fully loaded.`,
		Flags:  []cli.Flag{cmd.sizeFlag(), cmd.typeFlag()},
		Action: cmd.runNext,
	}
}

func (cmd *MsgCmd) runNext(ctx context.Context, c *cli.Command) error {
	convID, err := cmd.conversation(c, 1)
	if err != nil {
		return err
	}

	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		if conv, ok := svc.State().Conversation(convID); ok && conv.Exhausted {
			printer.Ctx(ctx).Infof("Already at the beginning of the conversation")
			return nil
		}

		batch, err := svc.NextMessages(ctx, lobby.Query{
			ConversationID: convID,
			BatchSize:      cmd.size,
			PayloadType:    message.PayloadType(cmd.payloadType),
			Cursor:         svc.OldestCursor(convID),
		})
		if err != nil {
			return err
		}
		return cmd.report(ctx, c, svc, convID, batch)
	})
}

func (cmd *MsgCmd) aroundCmd() *cli.Command {
	return &cli.Command{
		Name:        "around",
		Usage:       "Fetch the messages adjacent to a loaded message",
		UsageText:   "lobby msg around <conversation> <message> [--size n] [--type t]",
		Description: "Fetches up to --size messages on each side of the given message.",
		Flags:       []cli.Flag{cmd.sizeFlag(), cmd.typeFlag()},
		Action:      cmd.runAround,
	}
}

func (cmd *MsgCmd) runAround(ctx context.Context, c *cli.Command) error {
	convID, err := cmd.conversation(c, 2)
	if err != nil {
		return err
	}
	msgID := c.Args().Get(1)

	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		m, ok := svc.State().Message(msgID)
		if !ok || m.ConversationID != convID {
			return fmt.Errorf("%w: %s", chat.ErrMessageNotFound, msgID)
		}

		batch, err := svc.AdjacentMessages(ctx, lobby.Query{
			ConversationID: convID,
			BatchSize:      cmd.size,
			PayloadType:    message.PayloadType(cmd.payloadType),
			Cursor:         message.CursorOf(m),
		})
		if err != nil {
			return err
		}
		return cmd.report(ctx, c, svc, convID, batch)
	})
}

func (cmd *MsgCmd) fillCmd() *cli.Command {
	return &cli.Command{
		Name:      "fill",
		Usage:     "Fetch older messages and fill gaps around the loaded midpoint",
		UsageText: "lobby msg fill <conversation> [--size n]",
		Description: `Runs the older fetch and, once at least --size messages are loaded, the
adjacent fetch around the middle of the timeline concurrently.`,
		Flags:  []cli.Flag{cmd.sizeFlag()},
		Action: cmd.runFill,
	}
}

func (cmd *MsgCmd) runFill(ctx context.Context, c *cli.Command) error {
	convID, err := cmd.conversation(c, 1)
	if err != nil {
		return err
	}
	size := cmd.size
	if size == 0 {
		size = cmd.flags.Config.Fetch.BatchSize
	}

	p := printer.Ctx(ctx)
	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		res, err := svc.Reconcile(ctx, convID, size)
		if err != nil {
			return err
		}

		if res.Older.Exhausted && len(res.Older.Messages) == 0 {
			p.Infof("No older messages")
		} else {
			p.Successf("Fetched %d older message(s)", len(res.Older.Messages))
		}
		if res.Adjacent != nil {
			p.Successf("Fetched %d message(s) around the midpoint", len(res.Adjacent.Messages))
		}
		p.Infof("%d message(s) loaded", len(svc.State().Timeline(convID)))
		return nil
	})
}

func (cmd *MsgCmd) sendCmd() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a text message",
		UsageText: "lobby msg send <conversation> [text...] [--reply-to <message>]",
		Description: `Sends a text message. Without text arguments the message is read from stdin.

Examples:
  lobby msg send bob "see you at 5"
  echo "build passed" | lobby msg send team`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "reply-to",
				Aliases:     []string{"r"},
				Usage:       "id of a loaded message to reply to",
				Destination: &cmd.replyTo,
			},
			&cli.BoolFlag{
				Name:        "new",
				Usage:       "start a direct conversation with an agent that is not loaded yet",
				Destination: &cmd.newP2P,
			},
		},
		Action: cmd.runSend,
	}
}

func (cmd *MsgCmd) runSend(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected a conversation")
	}
	convID := cmd.flags.Config.Resolve(c.Args().First())

	text, err := messageText(c.Args().Tail(), os.Stdin)
	if err != nil {
		return err
	}

	opts := lobby.SendOptions{ConversationID: convID, Text: text, ReplyTo: cmd.replyTo}
	if cmd.newP2P {
		opts.Kind = chat.KindP2P
	}

	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		m, err := svc.SendMessage(ctx, opts)
		if err != nil {
			return err
		}
		printer.Ctx(ctx).Successf("Sent %s", m.ID)
		return nil
	})
}

// messageText joins args, or reads stdin when no args are given and stdin is
// not a terminal.
func messageText(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if stdin == nil || term.IsTerminal(int(stdin.Fd())) {
		return "", errors.New("no message given (stdin is a terminal); pass text or pipe it in")
	}
	return readText(stdin)
}

func readText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (cmd *MsgCmd) readCmd() *cli.Command {
	return &cli.Command{
		Name:        "read",
		Usage:       "Send read receipts for loaded messages",
		UsageText:   "lobby msg read <conversation> [message...]",
		Description: "Marks the given messages, or every loaded message when none are given, as read.",
		Action:      cmd.runRead,
	}
}

func (cmd *MsgCmd) runRead(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected a conversation")
	}
	convID := cmd.flags.Config.Resolve(c.Args().First())
	ids := c.Args().Tail()

	return cmd.flags.Run(ctx, func(svc *lobby.Service) error {
		if len(ids) == 0 {
			conv, ok := svc.State().Conversation(convID)
			if !ok {
				return fmt.Errorf("%w: %s", chat.ErrConversationNotFound, convID)
			}
			ids = conv.Messages
		}

		if err := svc.ReadMessages(ctx, convID, ids); err != nil {
			return err
		}
		printer.Ctx(ctx).Successf("Marked read")
		return nil
	})
}

// conversation resolves the first argument and checks the argument count.
func (cmd *MsgCmd) conversation(c *cli.Command, nargs int) (string, error) {
	if c.NArg() != nargs {
		return "", fmt.Errorf("expected %d argument(s), got %d", nargs, c.NArg())
	}
	return cmd.flags.Config.Resolve(c.Args().First()), nil
}

func (cmd *MsgCmd) report(ctx context.Context, c *cli.Command, svc *lobby.Service, convID string, batch lobby.Batch) error {
	p := printer.Ctx(ctx)

	if batch.Exhausted {
		p.Infof("No older messages")
		return nil
	}

	renderTimeline(c.Root().Writer, svc.State(), convID, batch.Messages)
	p.Successf("Fetched %d message(s), %d loaded", len(batch.Messages), len(svc.State().Timeline(convID)))
	return nil
}
