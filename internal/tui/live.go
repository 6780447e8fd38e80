// Package tui provides a live terminal view of a running fit: the
// residual trace and eigenvalue estimates update once per outer
// iteration, streamed from the fitter's observer hook.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/e-moran/dmdlab/internal/dmd"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type iterMsg dmd.Iteration

type doneMsg struct {
	rep *dmd.Report
	err error
}

// Model is the bubbletea model for the live fit view.
type Model struct {
	ch      chan tea.Msg
	cancel  context.CancelFunc
	history []float64
	eigs    []complex128
	iter    int
	rel     float64
	lambda  float64
	done    bool
	rep     *dmd.Report
	err     error
}

func waitForMsg(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func (m Model) Init() tea.Cmd {
	return waitForMsg(m.ch)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case iterMsg:
		m.iter = msg.Index
		m.rel = msg.Relative
		m.lambda = msg.Lambda
		m.eigs = msg.Eigenvalues
		m.history = append(m.history, msg.Residual)
		return m, waitForMsg(m.ch)
	case doneMsg:
		m.done = true
		m.rep = msg.rep
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("optDMD live fit"))
	sb.WriteString("\n")

	if len(m.history) > 0 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(10),
			asciigraph.Width(70),
		)
		sb.WriteString(graphStyle.Render(graph))
		sb.WriteString("\n")
	}

	sb.WriteString(labelStyle.Render("iteration"))
	sb.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.iter)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("rel. resid"))
	sb.WriteString(valueStyle.Render(fmt.Sprintf("%.3e", m.rel)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("damping"))
	sb.WriteString(valueStyle.Render(fmt.Sprintf("%.3e", m.lambda)))
	sb.WriteString("\n")

	for k, e := range m.eigs {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("eig %d", k)))
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%+.4f %+.4fi", real(e), imag(e))))
		sb.WriteString("\n")
	}

	if m.done {
		if m.rep != nil && m.rep.Converged {
			sb.WriteString(okStyle.Render("converged"))
		} else {
			sb.WriteString(failStyle.Render("did not converge"))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(helpStyle.Render("q: quit"))
	sb.WriteString("\n")
	return sb.String()
}

// Run fits the snapshot set while rendering live progress. It returns the
// fit report once the fitter finishes or the user quits.
func Run(ctx context.Context, s *dmd.Snapshots, opts dmd.Options) (*dmd.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan tea.Msg, 256)
	opts.Observer = func(it dmd.Iteration) {
		select {
		case ch <- iterMsg(it):
		default:
		}
	}

	go func() {
		rep, err := dmd.Fit(ctx, s, opts)
		ch <- doneMsg{rep: rep, err: err}
	}()

	p := tea.NewProgram(Model{ch: ch, cancel: cancel})
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(Model)
	if m.err != nil {
		return nil, m.err
	}
	if m.rep == nil {
		return nil, fmt.Errorf("tui: fit canceled")
	}
	return m.rep, nil
}
