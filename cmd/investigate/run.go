package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lumenpath/investigator/internal/events"
	"github.com/lumenpath/investigator/internal/orchestrator"
	"github.com/lumenpath/investigator/internal/planner/providerfactory"
)

var (
	runPersonA string
	runPersonB string
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an investigation and narrate it live",
		RunE:  runRun,
	}
	cmd.Flags().StringVar(&runPersonA, "a", "", "first public figure (prompted interactively if omitted on a terminal)")
	cmd.Flags().StringVar(&runPersonB, "b", "", "second public figure (prompted interactively if omitted on a terminal)")
	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interactive := isatty.IsTerminal(os.Stdout.Fd())

	personA, personB := runPersonA, runPersonB
	if (personA == "" || personB == "") && interactive {
		if err := promptForNames(&personA, &personB); err != nil {
			return err
		}
	}
	if personA == "" || personB == "" {
		return fmt.Errorf("investigate run: --a and --b are required when not run on a terminal")
	}

	planner, err := providerfactory.New().Build(cfg.ToProviderConfig())
	if err != nil {
		return err
	}

	search, scene, recognizer := demoProviders()
	o := orchestrator.New(search, demoFetcher(), scene, recognizer, slog.Default())
	opts := cfg.ToOrchestratorOptions()
	opts.Planner = planner

	ctx := cmd.Context()
	runID, err := o.Start(ctx, personA, personB, opts)
	if err != nil {
		return err
	}

	ch, cancel, err := o.Subscribe(runID)
	if err != nil {
		return err
	}
	defer cancel()

	if interactive {
		return narrateTUI(ch)
	}
	narratePlain(ch)
	return nil
}

// promptForNames collects the two subject names with a huh form.
func promptForNames(a, b *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First public figure").Value(a),
			huh.NewInput().Title("Second public figure").Value(b),
		),
	)
	return form.Run()
}

// narratePlain prints one line per event, for non-interactive (piped,
// CI, or redirected) invocations.
func narratePlain(ch <-chan events.Event) {
	for ev := range ch {
		fmt.Printf("[%s] %s\n", ev.Type, ev.Message)
	}
}

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	styleEvent  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	styleFinal  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	styleFailed = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// eventMsg wraps one orchestrator event as a bubbletea message.
type eventMsg events.Event

// streamClosedMsg signals the event channel has drained.
type streamClosedMsg struct{}

type runModel struct {
	ch      <-chan events.Event
	lines   []string
	done    bool
	status  string
	spinner spinner.Model
}

func newRunModel(ch <-chan events.Event) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleEvent
	return runModel{ch: ch, status: "running", spinner: s}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.ch), m.spinner.Tick)
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.lines = append(m.lines, formatEvent(events.Event(msg)))
		switch events.Event(msg).Type {
		case events.TypeFinal:
			m.status = "completed"
		case events.TypeNoPath, events.TypeError:
			m.status = "failed"
		}
		return m, waitForEvent(m.ch)
	case streamClosedMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m runModel) View() string {
	view := styleHeader.Render("investigating...") + "\n"
	for _, line := range m.lines {
		view += line + "\n"
	}
	if m.done {
		switch m.status {
		case "completed":
			view += styleFinal.Render("investigation complete") + "\n"
		case "failed":
			view += styleFailed.Render("investigation ended without a confirmed path") + "\n"
		}
	} else {
		view += m.spinner.View() + " waiting for next event\n"
	}
	return view
}

func formatEvent(ev events.Event) string {
	return styleEvent.Render(fmt.Sprintf("[%s] %s", ev.Type, ev.Message))
}

func narrateTUI(ch <-chan events.Event) error {
	program := tea.NewProgram(newRunModel(ch))
	_, err := program.Run()
	return err
}
