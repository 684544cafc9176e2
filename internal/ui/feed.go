package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

// feedLimit is the number of events kept on screen.
const feedLimit = 12

type feedEntry struct {
	at      time.Time
	event   string
	summary string
}

type eventMsg struct{ msg *signaling.Message }

type feedClosedMsg struct{}

// FeedModel shows signaling events received in a room as they arrive.
type FeedModel struct {
	room     string
	events   <-chan *signaling.Message
	spinner  spinner.Model
	entries  []feedEntry
	total    int
	closed   bool
	quitting bool
	now      func() time.Time
}

// NewFeedModel creates a feed reading from events until the channel closes.
func NewFeedModel(room string, events <-chan *signaling.Message) *FeedModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle

	return &FeedModel{
		room:    room,
		events:  events,
		spinner: s,
		now:     time.Now,
	}
}

func (m *FeedModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m *FeedModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg{msg: msg}
	}
}

func (m *FeedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case eventMsg:
		m.push(msg.msg)
		return m, m.waitForEvent()

	case feedClosedMsg:
		m.closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *FeedModel) push(msg *signaling.Message) {
	m.total++
	m.entries = append(m.entries, feedEntry{
		at:      m.now(),
		event:   msg.Type,
		summary: Summarize(msg),
	})
	if len(m.entries) > feedLimit {
		m.entries = m.entries[len(m.entries)-feedLimit:]
	}
}

// Closed reports whether the feed ended because the connection went away.
func (m *FeedModel) Closed() bool {
	return m.closed
}

func (m *FeedModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s Listening in %s", IconSignal, m.room)))
	b.WriteString("\n")

	if len(m.entries) == 0 {
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), MutedStyle.Render("Waiting for peers to signal...")))
	}
	for _, e := range m.entries {
		b.WriteString(fmt.Sprintf("%s  %s  %s\n",
			MutedStyle.Render(e.at.Format("15:04:05")),
			EventStyle.Render(fmt.Sprintf("%-22s", e.event)),
			e.summary,
		))
	}

	switch {
	case m.closed:
		b.WriteString(FooterStyle.Render(fmt.Sprintf("Connection closed after %d events", m.total)))
	case m.quitting:
		b.WriteString(FooterStyle.Render(fmt.Sprintf("Stopped after %d events", m.total)))
	default:
		b.WriteString(FooterStyle.Render(fmt.Sprintf("%d events · press q to quit", m.total)))
	}
	b.WriteString("\n")
	return b.String()
}

// Summarize renders a one-line description of a received signaling frame.
func Summarize(msg *signaling.Message) string {
	switch msg.Type {
	case signaling.EventOfferReceived, signaling.EventAnswerReceived:
		var p map[string]signaling.SessionDescription
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return ErrorStyle.Render("unreadable payload")
		}
		for _, d := range p {
			return fmt.Sprintf("%s, %d lines of SDP", d.Type, sdpLines(d.SDP))
		}
		return MutedStyle.Render("empty")

	case signaling.EventICECandidateReceived:
		var c struct {
			Candidate string `json:"candidate"`
		}
		if err := json.Unmarshal(msg.Payload, &c); err != nil {
			return ErrorStyle.Render("unreadable payload")
		}
		if c.Candidate == "" {
			return MutedStyle.Render("end of candidates")
		}
		return Truncate(c.Candidate, 60)
	}

	return Truncate(string(msg.Payload), 60)
}

func sdpLines(sdp string) int {
	return len(strings.FieldsFunc(sdp, func(r rune) bool { return r == '\n' || r == '\r' }))
}

// RunFeed runs the feed until the user quits or events closes.
func RunFeed(room string, events <-chan *signaling.Message) (*FeedModel, error) {
	m := NewFeedModel(room, events)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return nil, err
	}
	return m, nil
}
