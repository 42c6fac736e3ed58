// Package styles provides shared lipgloss styles for rendering conversations.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorPurple = lipgloss.Color("#bb9af7")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
)

// HeaderStyle styles the conversation title.
var HeaderStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// AuthorStyle styles other participants' names.
var AuthorStyle = lipgloss.NewStyle().
	Foreground(ColorPurple).
	Bold(true)

// SelfStyle styles the local agent's name.
var SelfStyle = lipgloss.NewStyle().
	Foreground(ColorGreen).
	Bold(true)

// TimestampStyle styles message times and ids.
var TimestampStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// BodyStyle styles message text.
var BodyStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	PaddingLeft(2)

// ReplyStyle styles the quoted message a reply points at.
var ReplyStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true).
	BorderStyle(lipgloss.NormalBorder()).
	BorderLeft(true).
	BorderForeground(ColorGray).
	MarginLeft(2).
	PaddingLeft(1)

// PinStyle styles the pin marker.
var PinStyle = lipgloss.NewStyle().
	Foreground(ColorYellow)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)
