package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/hay-kot/lobby/internal/core/chat"
	"github.com/hay-kot/lobby/internal/core/message"
	"github.com/hay-kot/lobby/internal/styles"
)

const timeLayout = "2006-01-02 15:04"

// renderTimeline writes msgs as a transcript of the conversation.
func renderTimeline(w io.Writer, st chat.State, convID string, msgs []message.Message) {
	conv, _ := st.Conversation(convID)

	title := st.DisplayName(convID)
	if conv.Kind == chat.KindGroup {
		title += fmt.Sprintf(" (%d members)", len(conv.Members))
	}
	_, _ = fmt.Fprintln(w, styles.HeaderStyle.Render(title))
	_, _ = fmt.Fprintln(w, styles.DividerStyle.Render(strings.Repeat("─", 40)))

	if len(msgs) == 0 {
		_, _ = fmt.Fprintln(w, styles.TimestampStyle.Render("no messages loaded"))
		return
	}

	for _, m := range msgs {
		_, _ = fmt.Fprintln(w, renderMessage(st, conv, m))
	}

	if conv.Exhausted {
		_, _ = fmt.Fprintln(w, styles.TimestampStyle.Render("beginning of conversation"))
	}
}

// renderMessage formats a single message with its header, reply quote and body.
func renderMessage(st chat.State, conv chat.Conversation, m message.Message) string {
	var b strings.Builder

	name := styles.AuthorStyle.Render(m.Author.Username)
	if me, ok := st.Self(); ok && me.ID == m.Author.ID {
		name = styles.SelfStyle.Render(m.Author.Username)
	}

	b.WriteString(name)
	b.WriteString(" ")
	b.WriteString(styles.TimestampStyle.Render(m.Timestamp.Local().Format(timeLayout)))
	if conv.IsPinned(m.ID) {
		b.WriteString(" ")
		b.WriteString(styles.PinStyle.Render("pinned"))
	}
	if n := readers(m); n > 0 {
		b.WriteString(" ")
		b.WriteString(styles.TimestampStyle.Render(fmt.Sprintf("read by %d", n)))
	}
	b.WriteString(" ")
	b.WriteString(styles.TimestampStyle.Render(m.ID))
	b.WriteString("\n")

	if m.ReplyTo != nil {
		author := m.ReplyTo.AuthorID
		if p, ok := st.Profiles[author]; ok {
			author = p.Username
		}
		b.WriteString(styles.ReplyStyle.Render(author + ": " + message.Summary(m.ReplyTo.Payload)))
		b.WriteString("\n")
	}

	b.WriteString(styles.BodyStyle.Render(message.Summary(m.Payload)))
	return b.String()
}

// readers counts agents other than the author that have read m.
func readers(m message.Message) int {
	n := 0
	for id := range m.ReadList {
		if id != m.Author.ID {
			n++
		}
	}
	return n
}
