package cli

import (
	"fmt"
	"strings"

	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/todos"
	"github.com/idilsaglam/tudu/internal/ui"
	"github.com/idilsaglam/tudu/internal/validate"
)

// todoRow is one rendered list line, scope-agnostic.
type todoRow struct {
	title  string
	byline string
	done   bool
}

func runTodoScope(scope string, args []string, opt *Options) int {
	if len(args) == 0 {
		args = []string{"ls"}
	}
	sub, rest := args[0], args[1:]
	if scope == "private" {
		return runPrivate(sub, rest, opt)
	}
	return runPublic(sub, rest, opt)
}

func runPrivate(sub string, args []string, opt *Options) int {
	vm := todos.NewPrivateTodos(opt.Gateway, opt.Cache, opt.Session, opt.notifier(), opt.Logger)
	ctx, cancel := opt.ctx()
	defer cancel()

	switch sub {
	case "ls":
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		rows := make([]todoRow, 0, len(items))
		for _, t := range items {
			rows = append(rows, todoRow{title: t.Title, done: t.Completed})
		}
		renderTodoPanel(opt, "Private Todos", rows)
		return 0

	case "add":
		title := strings.TrimSpace(strings.Join(args, " "))
		if err := validate.TodoTitle(title); err != nil {
			opt.failf("add: %s", err)
			return 2
		}
		if _, err := vm.Create(ctx, todos.Input{Title: title}); err != nil {
			return errorOut(opt, err, todos.ErrNotAuthenticated)
		}
		opt.okf("added")
		return 0

	case "done":
		if len(args) != 1 {
			opt.failf("usage: tudu private done <index>")
			return 2
		}
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		i, err := parseIndex(args[0], len(items))
		if err != nil {
			opt.failf("done: %s", err)
			return 2
		}
		if _, err := vm.ToggleComplete(ctx, items[i]); err != nil {
			return errorOut(opt, err)
		}
		opt.okf("toggled")
		return 0

	case "rm":
		if len(args) != 1 {
			opt.failf("usage: tudu private rm <index>")
			return 2
		}
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		i, err := parseIndex(args[0], len(items))
		if err != nil {
			opt.failf("rm: %s", err)
			return 2
		}
		if err := vm.Delete(ctx, items[i]); err != nil {
			return errorOut(opt, err)
		}
		opt.okf("removed")
		return 0
	}

	opt.failf("usage: tudu private <ls|add|done|rm>")
	return 2
}

func runPublic(sub string, args []string, opt *Options) int {
	vm := todos.NewPublicTodos(opt.Gateway, opt.Cache, opt.Session, opt.notifier(), opt.Logger)
	ctx, cancel := opt.ctx()
	defer cancel()

	switch sub {
	case "ls":
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		rows := make([]todoRow, 0, len(items))
		for _, t := range items {
			var author *model.User
			if t.Expand != nil {
				author = t.Expand.Author
			}
			rows = append(rows, todoRow{
				title:  t.Title,
				byline: authorLabel(author, t.Author),
				done:   t.Completed,
			})
		}
		renderTodoPanel(opt, "Public Todos", rows)
		return 0

	case "add":
		title := strings.TrimSpace(strings.Join(args, " "))
		if err := validate.TodoTitle(title); err != nil {
			opt.failf("add: %s", err)
			return 2
		}
		if _, err := vm.Create(ctx, todos.Input{Title: title}); err != nil {
			return errorOut(opt, err, todos.ErrNotAuthenticated)
		}
		opt.okf("added")
		return 0

	case "done":
		if len(args) != 1 {
			opt.failf("usage: tudu public done <index>")
			return 2
		}
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		i, err := parseIndex(args[0], len(items))
		if err != nil {
			opt.failf("done: %s", err)
			return 2
		}
		if _, err := vm.ToggleComplete(ctx, items[i]); err != nil {
			return errorOut(opt, err, todos.ErrNotOwner)
		}
		opt.okf("toggled")
		return 0

	case "rm":
		if len(args) != 1 {
			opt.failf("usage: tudu public rm <index>")
			return 2
		}
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		i, err := parseIndex(args[0], len(items))
		if err != nil {
			opt.failf("rm: %s", err)
			return 2
		}
		if err := vm.Delete(ctx, items[i]); err != nil {
			return errorOut(opt, err, todos.ErrNotOwner)
		}
		opt.okf("removed")
		return 0
	}

	opt.failf("usage: tudu public <ls|add|done|rm>")
	return 2
}

func runGroupTodos(args []string, opt *Options) int {
	if len(args) == 0 {
		opt.failf("usage: tudu group-todos <group> [ls|add|done|rm]")
		return 2
	}
	ctx, cancel := opt.ctx()
	defer cancel()

	group, err := resolveGroup(ctx, opt, args[0])
	if err != nil {
		opt.failf("%s", err)
		return 1
	}
	args = args[1:]
	if len(args) == 0 {
		args = []string{"ls"}
	}
	sub, rest := args[0], args[1:]
	vm := todos.NewGroupTodos(opt.Gateway, opt.Cache, opt.Session, opt.notifier(), opt.Logger, group.ID)

	switch sub {
	case "ls":
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		rows := make([]todoRow, 0, len(items))
		for _, t := range items {
			var author *model.User
			if t.Expand != nil {
				author = t.Expand.Author
			}
			rows = append(rows, todoRow{
				title:  t.Title,
				byline: authorLabel(author, t.Author),
				done:   t.Completed,
			})
		}
		renderTodoPanel(opt, group.Name, rows)
		return 0

	case "add":
		title := strings.TrimSpace(strings.Join(rest, " "))
		if err := validate.TodoTitle(title); err != nil {
			opt.failf("add: %s", err)
			return 2
		}
		if _, err := vm.Create(ctx, todos.Input{Title: title}); err != nil {
			return errorOut(opt, err, todos.ErrNotAuthenticated, todos.ErrMissingGroup)
		}
		opt.okf("added to %s", group.Name)
		return 0

	case "done":
		if len(rest) != 1 {
			opt.failf("usage: tudu group-todos <group> done <index>")
			return 2
		}
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		i, err := parseIndex(rest[0], len(items))
		if err != nil {
			opt.failf("done: %s", err)
			return 2
		}
		if _, err := vm.ToggleComplete(ctx, items[i]); err != nil {
			return errorOut(opt, err, todos.ErrNotOwner)
		}
		opt.okf("toggled")
		return 0

	case "rm":
		if len(rest) != 1 {
			opt.failf("usage: tudu group-todos <group> rm <index>")
			return 2
		}
		items, err := vm.Fetch(ctx)
		if err != nil {
			opt.failf("fetch: %s", err)
			return 1
		}
		i, err := parseIndex(rest[0], len(items))
		if err != nil {
			opt.failf("rm: %s", err)
			return 2
		}
		if err := vm.Delete(ctx, items[i]); err != nil {
			return errorOut(opt, err, todos.ErrNotOwner)
		}
		opt.okf("removed")
		return 0
	}

	opt.failf("usage: tudu group-todos <group> <ls|add|done|rm>")
	return 2
}

// -------------- rendering helpers --------------

func authorLabel(author *model.User, rawID string) string {
	if author != nil {
		if author.Name != "" {
			return "by " + author.Name
		}
		return "by " + author.Email
	}
	if rawID == "" {
		return ""
	}
	return "by " + rawID
}

func renderTodoPanel(opt *Options, heading string, rows []todoRow) {
	t := ui.Current()
	done := 0
	for _, r := range rows {
		if r.done {
			done++
		}
	}
	pending := len(rows) - done

	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, heading),
		ui.C(t.Success, t.SymDone), done,
		ui.C(t.Pending, t.SymUnchecked), pending,
		ui.C(t.Accent, "Total"), len(rows),
	)

	lines := []string{header, ui.C(t.Muted, ui.ProgressBar(done, len(rows), 28)), ""}
	if len(rows) == 0 {
		lines = append(lines, ui.C(t.Muted, "no todos"))
	}
	for i, r := range rows {
		idx := fmt.Sprintf("%2d.", i+1)
		box := t.BoxUnchecked
		color := t.Muted
		if r.done {
			box, color = t.BoxChecked, t.Success
		}
		title := r.title
		if len(title) > 80 {
			title = title[:77] + "..."
		}
		line := fmt.Sprintf("%s %s %s", ui.C("\033[2m", idx), ui.C(color, box), title)
		if r.byline != "" {
			line += " " + ui.C(t.Muted, r.byline)
		}
		lines = append(lines, line)
	}
	fmt.Fprintln(opt.out(), ui.PanelString(lines))
}
