// Package tui renders the terminal dashboard: a plugin sidebar plus
// one chart panel per field group of the selected plugin.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlab/perch/internal/apiclient"
	"github.com/perchlab/perch/internal/model"
)

const (
	sidebarWidth  = 24
	minWindow     = 15 * time.Minute
	maxWindow     = 30 * 24 * time.Hour
	defaultWindow = time.Hour
)

// Fetcher is the API surface the dashboard pulls from.
type Fetcher interface {
	List(ctx context.Context) (map[string]model.PluginStatus, error)
	Plugin(ctx context.Context, name string, gte, lte time.Time) (apiclient.PluginDetail, error)
}

type listLoadedMsg struct {
	statuses map[string]model.PluginStatus
}

type detailLoadedMsg struct {
	detail apiclient.PluginDetail
}

type fetchErrMsg struct {
	err error
}

type tickMsg time.Time

// Dashboard is the top-level Bubble Tea model.
type Dashboard struct {
	client   Fetcher
	keys     KeyMap
	interval time.Duration
	window   time.Duration

	names    []string
	statuses map[string]model.PluginStatus
	cursor   int
	detail   *apiclient.PluginDetail
	err      error

	width  int
	height int
}

// NewDashboard creates a dashboard polling the given client.
func NewDashboard(client Fetcher, interval time.Duration) *Dashboard {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Dashboard{
		client:   client,
		keys:     DefaultKeyMap(),
		interval: interval,
		window:   defaultWindow,
	}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.fetchList(), d.tick())
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d *Dashboard) fetchList() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		statuses, err := d.client.List(ctx)
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return listLoadedMsg{statuses: statuses}
	}
}

func (d *Dashboard) fetchDetail() tea.Cmd {
	name := d.selected()
	if name == "" {
		return nil
	}
	window := d.window
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		now := time.Now()
		detail, err := d.client.Plugin(ctx, name, now.Add(-window), now)
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return detailLoadedMsg{detail: detail}
	}
}

func (d *Dashboard) selected() string {
	if d.cursor < 0 || d.cursor >= len(d.names) {
		return ""
	}
	return d.names[d.cursor]
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit), key.Matches(msg, d.keys.ForceQuit):
			return d, tea.Quit
		case key.Matches(msg, d.keys.Up):
			if d.cursor > 0 {
				d.cursor--
				d.detail = nil
				return d, d.fetchDetail()
			}
		case key.Matches(msg, d.keys.Down):
			if d.cursor < len(d.names)-1 {
				d.cursor++
				d.detail = nil
				return d, d.fetchDetail()
			}
		case key.Matches(msg, d.keys.Refresh):
			return d, tea.Batch(d.fetchList(), d.fetchDetail())
		case key.Matches(msg, d.keys.WindowUp):
			if d.window*2 <= maxWindow {
				d.window *= 2
			}
			return d, d.fetchDetail()
		case key.Matches(msg, d.keys.WindowDn):
			if d.window/2 >= minWindow {
				d.window /= 2
			}
			return d, d.fetchDetail()
		}
		return d, nil

	case listLoadedMsg:
		d.err = nil
		d.statuses = msg.statuses
		previous := d.selected()
		d.names = d.names[:0]
		for name := range msg.statuses {
			d.names = append(d.names, name)
		}
		sort.Strings(d.names)
		d.cursor = 0
		for i, name := range d.names {
			if name == previous {
				d.cursor = i
				break
			}
		}
		if d.detail == nil {
			return d, d.fetchDetail()
		}
		return d, nil

	case detailLoadedMsg:
		d.err = nil
		if msg.detail.Name == d.selected() {
			detail := msg.detail
			d.detail = &detail
		}
		return d, nil

	case fetchErrMsg:
		d.err = msg.err
		return d, nil

	case tickMsg:
		return d, tea.Batch(d.fetchList(), d.fetchDetail(), d.tick())
	}

	return d, nil
}

func (d *Dashboard) View() string {
	if d.width == 0 {
		return "loading..."
	}

	contentHeight := d.height - 2
	if contentHeight < 4 {
		contentHeight = 4
	}

	sidebar := d.renderSidebar(contentHeight)
	charts := d.renderCharts(d.width-sidebarWidth-4, contentHeight)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, charts)
	help := helpStyle.Render(fmt.Sprintf(
		"↑/↓ select · r refresh · +/- window (%s) · q quit", d.window))

	return lipgloss.JoinVertical(lipgloss.Left, body, help)
}

func (d *Dashboard) renderSidebar(height int) string {
	var lines []string
	lines = append(lines, titleStyle.Render("plugins"))

	for i, name := range d.names {
		marker := dimStyle.Render("·")
		if status, ok := d.statuses[name]; ok && status.LastExecutedResult != nil {
			if *status.LastExecutedResult {
				marker = okStyle.Render("✓")
			} else {
				marker = failStyle.Render("✗")
			}
		}
		label := name
		if i == d.cursor {
			label = selectedStyle.Render(name)
		}
		lines = append(lines, marker+" "+label)
	}

	if len(d.names) == 0 {
		lines = append(lines, dimStyle.Render("no plugins"))
	}
	if d.err != nil {
		lines = append(lines, "", failStyle.Render("error:"), failStyle.Render(trim(d.err.Error(), sidebarWidth-4)))
	}

	return sidebarStyle.Width(sidebarWidth).Height(height).
		Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) renderCharts(width, height int) string {
	if d.detail == nil {
		return panelStyle.Width(width).Height(height).
			Render(dimStyle.Render("no data yet"))
	}

	groups := make([]string, 0, len(d.detail.Data))
	for name := range d.detail.Data {
		groups = append(groups, name)
	}
	sort.Strings(groups)

	if len(groups) == 0 {
		return panelStyle.Width(width).Height(height).
			Render(dimStyle.Render("plugin has no field groups"))
	}

	panelHeight := height/len(groups) - 2
	if panelHeight < 6 {
		panelHeight = 6
	}

	panels := make([]string, 0, len(groups))
	for _, group := range groups {
		chart := d.detail.Data[group]
		header := titleStyle.Render(d.detail.Name + " / " + group)
		content := renderGroupChart(chart, width-4, panelHeight-2)
		panels = append(panels, panelStyle.Width(width).
			Render(lipgloss.JoinVertical(lipgloss.Left, header, content)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

func trim(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
