package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

// TodayFunc supplies the local date the dashboard is rendered for.
type TodayFunc func() (string, error)

type sessionState int

const (
	stateList sessionState = iota
	stateAddHabit
	stateConfirmDelete
)

type Model struct {
	svc     *habits.Service
	today   TodayFunc
	state   sessionState
	showing models.HabitStatus
	keys    KeyMap
	help    help.Model
	list    list.Model

	form      *huh.Form
	habitForm *HabitFormModel
	formError string

	habitToDeleteID string
	archivedCount   int
	status          string
	err             error
	quitting        bool
	width           int
	height          int
}

func NewModel(svc *habits.Service, today TodayFunc) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	m := Model{
		svc:     svc,
		today:   today,
		state:   stateList,
		showing: models.StatusActive,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		list:    l,
	}
	m.reload()
	return m
}

// reload refreshes the list for the tab being shown.
func (m *Model) reload() {
	ctx := context.Background()
	today, err := m.today()
	if err != nil {
		m.err = err
		return
	}

	stats, err := m.svc.ListHabitsWithStats(ctx, m.showing, today)
	if err != nil {
		m.err = err
		return
	}
	items := make([]list.Item, len(stats))
	for i, s := range stats {
		items[i] = Item{Habit: s}
	}
	m.list.SetItems(items)

	if count, err := m.svc.CountArchivedHabits(ctx); err == nil {
		m.archivedCount = count
	}
}

func (m Model) selected() (models.HabitWithStats, bool) {
	item, ok := m.list.SelectedItem().(Item)
	if !ok {
		return models.HabitWithStats{}, false
	}
	return item.Habit, true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, max(msg.Height-4, 0))
		return m, nil
	}

	switch m.state {
	case stateAddHabit:
		return m.updateAddHabit(msg)
	case stateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(keyMsg, m.keys.Tab):
		if m.showing == models.StatusActive {
			m.showing = models.StatusArchived
		} else {
			m.showing = models.StatusActive
		}
		m.status, m.err = "", nil
		m.list.ResetSelected()
		m.reload()
		return m, nil
	case key.Matches(keyMsg, m.keys.Add):
		if m.showing != models.StatusActive {
			return m, nil
		}
		today, err := m.today()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.habitForm = NewHabitFormModel(today)
		m.form = NewHabitForm(m.habitForm)
		m.formError = ""
		m.state = stateAddHabit
		return m, m.form.Init()
	case key.Matches(keyMsg, m.keys.Complete):
		if h, ok := m.selected(); ok && m.showing == models.StatusActive {
			m.complete(h)
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Archive):
		if h, ok := m.selected(); ok && m.showing == models.StatusActive {
			m.apply(m.svc.ArchiveHabit(context.Background(), h.ID), "Archived "+h.Name)
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Restore):
		if h, ok := m.selected(); ok && m.showing == models.StatusArchived {
			m.apply(m.svc.RestoreHabit(context.Background(), h.ID), "Restored "+h.Name)
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Delete):
		if h, ok := m.selected(); ok {
			m.habitToDeleteID = h.ID
			m.state = stateConfirmDelete
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) complete(h models.HabitWithStats) {
	today, err := m.today()
	if err != nil {
		m.err = err
		return
	}
	result, err := m.svc.CompleteHabit(context.Background(), h.ID, today, nil)
	if err != nil {
		m.apply(err, "")
		return
	}
	if result.Incremented {
		m.apply(nil, fmt.Sprintf("Logged %s (%d/%d)", h.Name, result.NewProgress, result.TargetCount))
	} else {
		m.apply(nil, fmt.Sprintf("%s is already complete for this period", h.Name))
	}
}

// apply records the outcome of a mutation and refreshes the list.
func (m *Model) apply(err error, status string) {
	if err != nil {
		logger.Warn("TUI action failed", "error", err)
		m.err = err
		m.status = ""
		return
	}
	m.err = nil
	m.status = status
	m.reload()
}

func (m Model) updateAddHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = stateList
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		if err := m.submitHabitForm(); err != nil {
			// stay on the form so the user can fix the input or cancel with esc
			m.formError = err.Error()
			m.form.State = huh.StateNormal
			return m, cmd
		}
		m.state = stateList
	case huh.StateAborted:
		m.state = stateList
	}
	return m, cmd
}

func (m *Model) submitHabitForm() error {
	in, err := m.habitForm.Input()
	if err != nil {
		return err
	}
	if _, err := m.svc.CreateHabit(context.Background(), in); err != nil {
		return err
	}
	m.apply(nil, "Added "+in.Name)
	return nil
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		m.apply(m.svc.DeleteHabit(context.Background(), m.habitToDeleteID), "Deleted habit")
		m.habitToDeleteID = ""
		m.state = stateList
	case key.Matches(keyMsg, m.keys.Cancel):
		m.habitToDeleteID = ""
		m.state = stateList
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case stateAddHabit:
		content = m.form.View()
		if m.formError != "" {
			content = lipgloss.JoinVertical(lipgloss.Left, content, dangerStyle.Render(m.formError))
		}
	case stateConfirmDelete:
		content = m.viewConfirmDelete()
	default:
		content = m.viewList()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) viewTabs() string {
	active := inactiveTabStyle.Render("Active")
	archived := inactiveTabStyle.Render(fmt.Sprintf("Archived (%d)", m.archivedCount))
	if m.showing == models.StatusActive {
		active = activeTabStyle.Render("Active")
	} else {
		archived = activeTabStyle.Render(fmt.Sprintf("Archived (%d)", m.archivedCount))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, active, archived)
}

func (m Model) viewList() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		if m.showing == models.StatusArchived {
			return docStyle.Render("No archived habits.")
		}
		return docStyle.Render("No habits yet.\nPress 'a' to add one.")
	}
	return m.list.View()
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, max(m.height-4, 0),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			warningStyle.Render("Delete this habit? This cannot be undone."),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return dangerStyle.Render("Error: " + m.err.Error())
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	return ""
}
