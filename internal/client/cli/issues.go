package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/civicdesk/internal/client/issues"
	"github.com/dmitrijs2005/civicdesk/internal/client/models"
	"github.com/dmitrijs2005/civicdesk/internal/client/session"
)

var errNoDashboard = errors.New("no dashboard open, please login")

func (a *App) dashboard() (*issues.ListController, error) {
	_, list, _ := a.controllers()
	if list == nil {
		return nil, errNoDashboard
	}
	return list, nil
}

// List loads the dashboard for the active filter and prints the first
// page. "list all|<status>" changes the filter first.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return a.Filter(ctx, args)
	}
	list, err := a.dashboard()
	if err != nil {
		return err
	}
	if err := list.Load(ctx); err != nil {
		return a.loadFailed(ctx, err)
	}
	printIssues(a.out, list.Visible(), list.HasMore())
	return nil
}

func (a *App) loadFailed(ctx context.Context, err error) error {
	if errors.Is(err, issues.ErrStaleResponse) {
		return nil
	}
	if errors.Is(err, models.ErrInvalidStatus) {
		return err
	}
	if err = a.checkAuth(ctx, err); err != nil && !a.localOnly() {
		fmt.Fprintln(a.out, "Loading failed, type 'refresh' to retry")
	}
	return err
}

// More reveals the next page.
func (a *App) More(ctx context.Context) error {
	list, err := a.dashboard()
	if err != nil {
		return err
	}
	if !list.HasMore() {
		fmt.Fprintln(a.out, "No more issues.")
		return nil
	}
	printIssues(a.out, list.LoadMore(), list.HasMore())
	return nil
}

// Filter switches the status filter and refetches.
func (a *App) Filter(ctx context.Context, args []string) error {
	list, err := a.dashboard()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: filter <ALL|PENDING|IN_PROGRESS|RESOLVED>")
		return nil
	}
	if err := list.SetFilter(ctx, args[0]); err != nil {
		return a.loadFailed(ctx, err)
	}
	fmt.Fprintf(a.out, "Filter: %s\n", list.Filter())
	printIssues(a.out, list.Visible(), list.HasMore())
	return nil
}

// Refresh refetches the active filter.
func (a *App) Refresh(ctx context.Context) error {
	list, err := a.dashboard()
	if err != nil {
		return err
	}
	if err := list.Refresh(ctx); err != nil {
		return a.loadFailed(ctx, err)
	}
	printIssues(a.out, list.Visible(), list.HasMore())
	return nil
}

// Stats prints per-status counts of the loaded set.
func (a *App) Stats(ctx context.Context) error {
	list, err := a.dashboard()
	if err != nil {
		return err
	}
	s := list.Stats()
	fmt.Fprintf(a.out, "Total: %d  Pending: %d  In Progress: %d  Resolved: %d\n",
		s.Total, s.Pending, s.InProgress, s.Resolved)
	return nil
}

// Status changes the status of one issue. Administrators only.
func (a *App) Status(ctx context.Context, args []string) error {
	view, _, ctrl := a.controllers()
	if view != session.ViewAdmin || ctrl == nil {
		fmt.Fprintln(a.out, "Only administrators can change the status of an issue")
		return nil
	}
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: status <id> <PENDING|IN_PROGRESS|RESOLVED>")
		return nil
	}
	id := args[0]

	if err := ctrl.Change(ctx, id, args[1]); err != nil {
		if msg := ctrl.Error(id); msg != "" {
			fmt.Fprintln(a.out, msg)
			ctrl.DismissError(id)
		}
		if a.session.Current() == nil {
			fmt.Fprintln(a.out, "Your session is no longer valid, please login again")
		}
		return err
	}

	if _, list, _ := a.controllers(); list != nil {
		if is, ok := list.Get(id); ok {
			printIssue(a.out, is)
			return nil
		}
	}
	fmt.Fprintf(a.out, "Issue #%s updated\n", id)
	return nil
}

// Show fetches and prints one issue.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: show <id>")
		return nil
	}
	is, err := a.api.GetIssue(ctx, args[0])
	if err != nil {
		return a.checkAuth(ctx, err)
	}
	printIssueDetail(a.out, is)
	return nil
}

// Mine lists the issues the backend attributes to the current user.
func (a *App) Mine(ctx context.Context) error {
	cur := a.session.Current()
	if cur == nil {
		return errNoDashboard
	}
	user := cur.UserID
	if user == "" {
		user = cur.Username
	}
	list, err := a.api.ListIssuesByUser(ctx, user)
	if err != nil {
		return a.checkAuth(ctx, err)
	}
	printIssues(a.out, list, false)
	return nil
}
