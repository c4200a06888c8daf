package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/chartwatch/internal/models"
	"github.com/desertthunder/chartwatch/internal/repositories"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HitListView ViewState = iota
	HitDetailView
)

type hitsFetchedMsg struct {
	records []models.HitRecord
	err     error
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	repo     *repositories.CheckRepository
	width    int
	height   int
	hitList  list.Model
	selected *models.HitRecord
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model over the hit repository.
func NewModel(ctx context.Context, repo *repositories.CheckRepository) *Model {
	return &Model{
		ctx:  ctx,
		view: HitListView,
		repo: repo,
		help: help.New(),
		keys: newKeyMap(),
	}
}

// Init loads the stored hits.
func (m *Model) Init() tea.Cmd {
	return m.fetchHits()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.hitList.Width() == 0 {
			m.hitList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case HitListView:
			return m.handleListKeys(msg)
		case HitDetailView:
			return m.handleDetailKeys(msg)
		}

	case hitsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.records))
		for i, record := range msg.records {
			items[i] = hitItem{record: record}
		}
		m.hitList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.hitList.Title = "Найденные плейлисты"
		m.hitList.SetSize(m.width-4, m.height-8)
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == HitListView {
		m.hitList, cmd = m.hitList.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case HitListView:
		return m.renderList()
	case HitDetailView:
		return m.renderDetail()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.fetchHits()
	case "enter":
		if selected := m.hitList.SelectedItem(); selected != nil {
			if item, ok := selected.(hitItem); ok {
				record := item.record
				m.selected = &record
				m.view = HitDetailView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.hitList, cmd = m.hitList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = HitListView
		m.selected = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) fetchHits() tea.Cmd {
	return func() tea.Msg {
		records, err := m.repo.ListHits(m.ctx)
		return hitsFetchedMsg{records: records, err: err}
	}
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.hitList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return styles.err.Render("No hit selected\n\nPress esc to go back")
	}

	hit := m.selected.Hit
	title := styles.title.Render(fmt.Sprintf("%s - %s", hit.Artist, hit.ReleaseTitle))

	var info strings.Builder
	fmt.Fprintf(&info, "UPC: %s\n", m.selected.UPC)
	fmt.Fprintf(&info, "Релиз: %s\n", hit.ReleaseDate.Format(models.DateLayout))
	fmt.Fprintf(&info, "%s\n\n", hit.WeekLabel)
	for _, line := range hit.Playlists {
		fmt.Fprintf(&info, "%s\n", styles.ok.Render("•")+" "+line)
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info.String(), helpView)
}
