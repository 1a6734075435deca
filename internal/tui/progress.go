package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dm/essnap-go/internal/events"
	"github.com/dm/essnap-go/internal/format"
)

// maxLogLines bounds the scrollback shown under the status line.
const maxLogLines = 8

// Progress is the Bubble Tea model shown while a backup or restore polls a
// long-running operation. The workflow itself runs in a separate goroutine
// and reports through a ChanSink plus a done channel; the model only renders.
type Progress struct {
	title  string
	spin   spinner.Model
	sink   *ChanSink
	done   <-chan error
	cancel func()

	phase    string
	snapshot string
	state    string
	elapsed  string
	log      []string

	cancelling bool
	finished   bool
	err        error
	width      int
}

// NewProgress creates a progress view for one workflow invocation. cancel
// stops the workflow on interrupt; the view keeps running until the workflow
// goroutine reports done, so the caller never reads a half-written report.
func NewProgress(title string, sink *ChanSink, done <-chan error, cancel func()) *Progress {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StylePhase
	return &Progress{
		title:  title,
		spin:   sp,
		sink:   sink,
		done:   done,
		cancel: cancel,
	}
}

// Err returns the workflow error observed at exit, if any.
func (p *Progress) Err() error { return p.err }

// Init implements tea.Model.
func (p *Progress) Init() tea.Cmd {
	return tea.Batch(p.spin.Tick, waitEvent(p.sink.C), waitDone(p.done))
}

// Update implements tea.Model — the single state-mutation entry point.
func (p *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		p.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return p, cmd

	case EventMsg:
		p.apply(msg.Event)
		return p, waitEvent(p.sink.C)

	case DoneMsg:
		p.finished = true
		p.err = msg.Err
		return p, tea.Quit

	case tea.KeyMsg:
		// Quitting before the workflow goroutine finishes would leave it
		// writing into state the caller is about to read; cancel and wait
		// for DoneMsg instead.
		if msg.String() == "ctrl+c" && !p.cancelling {
			p.cancelling = true
			if p.cancel != nil {
				p.cancel()
			}
			p.pushLog("interrupt received, stopping workflow")
		}
	}

	return p, nil
}

func (p *Progress) apply(ev events.Event) {
	switch ev := ev.(type) {
	case events.PhaseChanged:
		p.phase = ev.Phase
		p.pushLog(fmt.Sprintf("%s → %s", ev.Workflow, ev.Phase))
	case events.PollTick:
		p.snapshot = ev.Snapshot
		p.state = ev.State.String()
		p.elapsed = format.FormatDuration(ev.Elapsed)
	case events.ProbeRetried:
		p.pushLog(fmt.Sprintf("probe retry %d: %v", ev.Attempt, ev.Err))
	case events.CandidatesSelected:
		p.pushLog(fmt.Sprintf("%d rotation candidate(s), %d kept", len(ev.Candidates), ev.Kept))
	case events.SnapshotDeleted:
		if ev.Err != nil {
			p.pushLog(fmt.Sprintf("delete %s failed: %v", ev.Snapshot, ev.Err))
		} else {
			p.pushLog(fmt.Sprintf("deleted %s", ev.Snapshot))
		}
	case events.RotationFailed:
		p.pushLog(fmt.Sprintf("rotation: %v", ev.Err))
	case events.IndicesReopenFailed:
		p.pushLog(fmt.Sprintf("reopen %s: %v", strings.Join(ev.Indices, ","), ev.Err))
	}
}

func (p *Progress) pushLog(line string) {
	p.log = append(p.log, line)
	if len(p.log) > maxLogLines {
		p.log = p.log[len(p.log)-maxLogLines:]
	}
}

// View implements tea.Model.
func (p *Progress) View() string {
	var b strings.Builder

	b.WriteString(StyleHeader.Render(p.title))
	b.WriteString("\n\n")

	if p.finished {
		if p.err != nil {
			b.WriteString(StyleError.Render("✗ " + p.err.Error()))
		} else {
			b.WriteString(StyleStateSuccess.Render("✓ done"))
		}
	} else {
		b.WriteString(p.spin.View())
		b.WriteString(" ")
		phase := p.phase
		if p.cancelling {
			phase = "CANCELLING"
		}
		b.WriteString(StylePhase.Render(phase))
		if p.snapshot != "" {
			b.WriteString(fmt.Sprintf("  %s", p.snapshot))
		}
		if p.state != "" {
			b.WriteString("  ")
			b.WriteString(StateStyle(p.state).Render(p.state))
		}
		if p.elapsed != "" {
			b.WriteString(StyleDim.Render("  " + p.elapsed))
		}
	}
	b.WriteString("\n")

	for _, line := range p.log {
		b.WriteString(StyleDim.Render("  " + line))
		b.WriteString("\n")
	}

	return b.String()
}

// waitEvent blocks on the sink channel and wraps the next event. A closed
// channel yields no message; DoneMsg ends the program instead.
func waitEvent(ch chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return EventMsg{Event: ev}
	}
}

// waitDone blocks until the workflow goroutine reports completion.
func waitDone(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return DoneMsg{Err: <-done}
	}
}
