package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tudu/internal/ui"
	"github.com/idilsaglam/tudu/internal/validate"
)

type rowsLoadedMsg struct {
	rows []todoRow
	err  error
}

type opDoneMsg struct{ err error }

// invalidatedMsg signals that the scope's cache key was invalidated and
// the list must re-fetch.
type invalidatedMsg struct{}

// listItem adapts a todoRow to bubbles/list.Item.
type listItem struct{ row todoRow }

func (i listItem) Title() string       { return i.row.title }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.row.title }

// itemDelegate renders rows as single lines.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	box := ui.MutedStyle.Render(ui.BoxUnchecked)
	text := it.row.title
	if it.row.done {
		box = ui.SuccessStyle.Render(ui.BoxChecked)
		text = ui.DoneStyle.Render(text)
	}
	line := fmt.Sprintf("%s %s", box, text)
	if it.row.byline != "" {
		line += " " + ui.MutedStyle.Render(it.row.byline)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.SelectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

// todoPage renders one todo scope with inline add/edit, whichever
// scope it was built with.
type todoPage struct {
	scope *todoScope
	list  list.Model

	loading bool
	errText string

	adding   bool
	editing  bool
	editID   string
	ti       textinput.Model
	inputErr string

	invalidated    chan struct{}
	closed         chan struct{}
	stopInvalidate func()

	width, height int
}

func newTodoPage(scope *todoScope) *todoPage {
	p := &todoPage{
		scope:       scope,
		loading:     true,
		width:       80,
		height:      24,
		invalidated: make(chan struct{}, 1),
		closed:      make(chan struct{}),
	}

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = scope.name
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.TitleStyle
	l.Styles.HelpStyle = ui.HelpStyle
	l.Styles.PaginationStyle = ui.HelpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")

	binds := []key.Binding{
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
	if _, ok := scope.extras["m"]; ok {
		binds = append(binds, key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "members")))
	}
	l.AdditionalShortHelpKeys = func() []key.Binding { return binds }
	l.AdditionalFullHelpKeys = func() []key.Binding { return binds }
	p.list = l

	p.ti = textinput.New()
	p.ti.Prompt = "> "
	p.ti.CharLimit = 200
	return p
}

func (p *todoPage) setSize(w, h int) {
	p.width, p.height = w, h
	inner := h - 4
	if p.adding || p.editing {
		inner = h - 7
	}
	if inner < 3 {
		inner = 3
	}
	p.list.SetSize(w-4, inner)
}

func (p *todoPage) loadCmd() tea.Cmd {
	scope := p.scope
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), scope.timeout)
		defer cancel()
		rows, err := scope.load(ctx)
		return rowsLoadedMsg{rows: rows, err: err}
	}
}

func (p *todoPage) opCmd(op func(ctx context.Context) error) tea.Cmd {
	scope := p.scope
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), scope.timeout)
		defer cancel()
		return opDoneMsg{err: op(ctx)}
	}
}

func (p *todoPage) Init() tea.Cmd {
	cmds := []tea.Cmd{p.loadCmd()}
	if p.scope.onInvalidate != nil && p.stopInvalidate == nil {
		ch := p.invalidated
		p.stopInvalidate = p.scope.onInvalidate(func() {
			select {
			case ch <- struct{}{}:
			default: // a reload is already pending; coalesce
			}
		})
		cmds = append(cmds, p.waitInvalidate())
	}
	if p.scope.bridge != nil {
		bridge := p.scope.bridge
		cmds = append(cmds, func() tea.Msg {
			if err := bridge.Start(context.Background()); err != nil {
				return opDoneMsg{err: err}
			}
			return nil
		})
	}
	return tea.Batch(cmds...)
}

// waitInvalidate blocks until the scope key is invalidated, then asks
// for a re-fetch. Re-armed after every delivery; released on Close.
func (p *todoPage) waitInvalidate() tea.Cmd {
	ch, closed := p.invalidated, p.closed
	return func() tea.Msg {
		select {
		case <-ch:
			return invalidatedMsg{}
		case <-closed:
			return nil
		}
	}
}

// Close stops the live feed and the invalidation trigger when the
// router swaps the page out.
func (p *todoPage) Close() {
	if p.scope.bridge != nil {
		p.scope.bridge.Stop()
	}
	if p.stopInvalidate != nil {
		p.stopInvalidate()
		p.stopInvalidate = nil
		close(p.closed)
	}
}

// selectedRow resolves the cursor to a record. The visible list may be
// filtered, so positional indexes are never handed to the scope.
func (p *todoPage) selectedRow() (todoRow, bool) {
	li, ok := p.list.SelectedItem().(listItem)
	if !ok {
		return todoRow{}, false
	}
	return li.row, true
}

// rowCount is the unfiltered item count.
func (p *todoPage) rowCount() int { return len(p.list.Items()) }

func (p *todoPage) doneCount() int {
	done := 0
	for _, it := range p.list.Items() {
		if li, ok := it.(listItem); ok && li.row.done {
			done++
		}
	}
	return done
}

func (p *todoPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case rowsLoadedMsg:
		p.loading = false
		if msg.err != nil {
			p.errText = msg.err.Error()
			return p, nil
		}
		p.errText = ""
		items := make([]list.Item, 0, len(msg.rows))
		for _, r := range msg.rows {
			items = append(items, listItem{row: r})
		}
		return p, p.list.SetItems(items)

	case opDoneMsg:
		if msg.err != nil {
			// the view-model already raised a toast; keep the list as is
			return p, nil
		}
		return p, p.loadCmd()

	case invalidatedMsg:
		// the scope's cache key was dropped (live change or a mutation
		// elsewhere): re-fetch and re-arm the trigger
		return p, tea.Batch(p.loadCmd(), p.waitInvalidate())

	case tea.KeyMsg:
		if p.adding || p.editing {
			return p.updateInput(msg)
		}
		if p.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "esc":
			return p, navigate(p.scope.back)
		case "r":
			p.loading = true
			return p, p.loadCmd()
		case " ":
			row, ok := p.selectedRow()
			if !ok {
				return p, nil
			}
			id := row.id
			return p, p.opCmd(func(ctx context.Context) error { return p.scope.toggle(ctx, id) })
		case "d":
			row, ok := p.selectedRow()
			if !ok {
				return p, nil
			}
			id := row.id
			return p, p.opCmd(func(ctx context.Context) error { return p.scope.remove(ctx, id) })
		case "a":
			p.adding = true
			p.inputErr = ""
			p.ti.SetValue("")
			p.ti.Placeholder = "New todo title..."
			p.ti.Focus()
			return p, textinput.Blink
		case "e":
			row, ok := p.selectedRow()
			if !ok {
				return p, nil
			}
			p.editing = true
			p.editID = row.id
			p.inputErr = ""
			p.ti.SetValue(row.title)
			p.ti.CursorEnd()
			p.ti.Placeholder = "Edit todo title..."
			p.ti.Focus()
			return p, textinput.Blink
		}
		for keyName, nav := range p.scope.extras {
			if msg.String() == keyName {
				target := nav
				return p, func() tea.Msg { return target }
			}
		}
	}
	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

func (p *todoPage) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := strings.TrimSpace(p.ti.Value())
		if err := validate.TodoTitle(title); err != nil {
			p.inputErr = err.Error()
			return p, nil
		}
		var cmd tea.Cmd
		if p.adding {
			cmd = p.opCmd(func(ctx context.Context) error { return p.scope.add(ctx, title) })
		} else {
			id := p.editID
			cmd = p.opCmd(func(ctx context.Context) error { return p.scope.rename(ctx, id, title) })
		}
		p.adding, p.editing = false, false
		p.ti.SetValue("")
		p.ti.Blur()
		return p, cmd
	case "esc":
		p.adding, p.editing = false, false
		p.ti.SetValue("")
		p.ti.Blur()
		return p, nil
	}
	var cmd tea.Cmd
	p.ti, cmd = p.ti.Update(msg)
	return p, cmd
}

func (p *todoPage) View() string {
	dn := p.doneCount()
	total := p.rowCount()
	p.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		ui.TitleStyle.Render(p.scope.name),
		ui.SuccessStyle.Render("✔"), dn,
		ui.PendingStyle.Render("•"), total-dn,
		ui.AccentStyle.Render("Total"), total,
	)

	var content string
	switch {
	case p.loading:
		content = ui.MutedStyle.Render("loading...")
	case p.errText != "":
		content = ui.ErrorStyle.Render(p.errText)
	default:
		content = p.list.View()
	}

	if p.adding || p.editing {
		label := "Add todo"
		if p.editing {
			label = "Edit todo"
		}
		if p.inputErr != "" {
			label += " — " + ui.ErrorStyle.Render(p.inputErr)
		}
		content += "\n" + ui.Border().Render(label+"\n"+p.ti.View())
	}
	return ui.Border().Render(content)
}
