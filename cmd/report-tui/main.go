// Copyright 2025 James Ross
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/PaesslerAG/jsonpath"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/blockprover/orchestrator/internal/chainspec"
	"github.com/blockprover/orchestrator/internal/config"
	"github.com/blockprover/orchestrator/internal/obs"
	"github.com/blockprover/orchestrator/internal/prover"
	"github.com/blockprover/orchestrator/internal/reqactor"
	"github.com/blockprover/orchestrator/internal/reqgateway"
	"github.com/blockprover/orchestrator/internal/reqpool"
	"github.com/blockprover/orchestrator/internal/redisclient"
)

// Simple, pragmatic viewer over the request Pool: a queues-style table of
// every tracked request plus an ad-hoc jsonpath query over the selected
// row's stored status, and a sparkline of in-flight occupancy over time.
// It reads only through Gateway.ListStatus — it is just another Gateway
// consumer, with no special access.

type refreshMsg struct {
	entries []reqpool.Entry
	err     error
}

type tick struct{}

type model struct {
	ctx context.Context
	gw  *reqgateway.Gateway

	width, height int

	tbl   table.Model
	query textinput.Model

	entries   []reqpool.Entry
	errText   string
	selected  int
	inFlights []float64

	boxTitle lipgloss.Style
	boxBody  lipgloss.Style
}

func newModel(ctx context.Context, gw *reqgateway.Gateway) model {
	cols := []table.Column{
		{Title: "Key", Width: 52},
		{Title: "Status", Width: 16},
		{Title: "Updated", Width: 20},
	}
	tbl := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(20))

	q := textinput.New()
	q.Placeholder = "jsonpath query, e.g. $.Status.Status.Kind"
	q.CharLimit = 256
	q.Width = 60

	return model{
		ctx:      ctx,
		gw:       gw,
		tbl:      tbl,
		query:    q,
		boxTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		boxBody:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.ctx, m.gw), tickCmd())
}

func refreshCmd(ctx context.Context, gw *reqgateway.Gateway) tea.Cmd {
	return func() tea.Msg {
		entries, err := gw.ListStatus(ctx)
		return refreshMsg{entries: entries, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg { return tick{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tick:
		return m, tea.Batch(refreshCmd(m.ctx, m.gw), tickCmd())

	case refreshMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		sort.Slice(msg.entries, func(i, j int) bool { return msg.entries[i].Key.Less(msg.entries[j].Key) })
		m.entries = msg.entries
		m.tbl.SetRows(rowsFor(msg.entries))

		inFlight := 0
		for _, e := range msg.entries {
			if e.Status.Status.Kind.String() == "work_in_progress" {
				inFlight++
			}
		}
		m.inFlights = append(m.inFlights, float64(inFlight))
		if len(m.inFlights) > 120 {
			m.inFlights = m.inFlights[len(m.inFlights)-120:]
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if m.query.Focused() {
				m.query.Blur()
			} else {
				m.query.Focus()
			}
			return m, nil
		}
		if m.query.Focused() {
			var cmd tea.Cmd
			m.query, cmd = m.query.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.tbl, cmd = m.tbl.Update(msg)
		return m, cmd
	}
	return m, nil
}

func rowsFor(entries []reqpool.Entry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			e.Key.Encode(),
			e.Status.Status.Kind.String(),
			e.Status.Timestamp.Format(time.RFC3339),
		})
	}
	return rows
}

func (m model) View() string {
	header := m.boxTitle.Render("orchestrator report") + "\n"
	if m.errText != "" {
		header += lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("error: "+m.errText) + "\n"
	}

	body := m.boxBody.Render(m.tbl.View())

	var chart string
	if len(m.inFlights) >= 2 {
		chart = asciigraph.Plot(m.inFlights, asciigraph.Height(6), asciigraph.Caption("in-flight"))
	}

	queryLine := m.query.View()
	var queryResult string
	if sel := m.tbl.Cursor(); sel >= 0 && sel < len(m.entries) {
		queryResult = evalQuery(m.entries[sel], m.query.Value())
	}

	return header + body + "\n" + chart + "\n" + queryLine + "\n" + queryResult + "\n(q to quit, enter to focus/unfocus query)\n"
}

func evalQuery(entry reqpool.Entry, query string) string {
	if query == "" {
		return ""
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf("marshal error: %v", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Sprintf("unmarshal error: %v", err)
	}
	result, err := jsonpath.Get(query, v)
	if err != nil {
		return fmt.Sprintf("jsonpath error: %v", err)
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return string(out)
}

func main() {
	var configPath string
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLoggerFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	pool, closePool := mustBuildPool(cfg)
	defer closePool()

	chainSpecs, err := chainspec.Load(cfg.ChainSpecsPath)
	if err != nil {
		chainSpecs = chainspec.Table{}
	}

	registry := prover.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := reqactor.New(pool, registry, cfg.ConcurrencyLimit, 16, logger)
	go a.Run(ctx)

	gw := reqgateway.New(a, pool, cfg.DefaultRequestConfig, chainSpecs)

	p := tea.NewProgram(newModel(ctx, gw), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}

func mustBuildPool(cfg *config.Config) (reqpool.Pool, func()) {
	if cfg.Pool.Backend == "ttl-store" {
		rdb := redisclient.New(cfg)
		return reqpool.NewRedis(rdb, cfg.Pool.TTLSeconds, cfg.Pool.KeyPrefix), func() { _ = rdb.Close() }
	}
	return reqpool.NewMemory(), func() {}
}
