package issues

import "github.com/dmitrijs2005/civicdesk/internal/client/models"

// SessionSource yields the acting session, nil when anonymous.
type SessionSource interface {
	Current() *models.Session
}

// FilterOwned keeps the issues reported by sess. A reporter reference
// (id or username, whichever the payload carried) matches when it equals
// the session's username or user id. IDs are strings already, so numeric
// and textual ids from different payload shapes compare equal.
func FilterOwned(issues []models.Issue, sess *models.Session) []models.Issue {
	out := make([]models.Issue, 0, len(issues))
	if sess == nil {
		return out
	}
	mine := func(ref string) bool {
		return ref != "" && (ref == sess.Username || ref == sess.UserID)
	}
	for _, is := range issues {
		if mine(is.ReportedByID) || mine(is.ReportedByName) {
			out = append(out, is)
		}
	}
	return out
}

// NewUserDashboard returns a controller that fetches all issues and keeps
// only those owned by the session current at fetch time.
func NewUserDashboard(lister Lister, sessions SessionSource, opts ...Option) *ListController {
	owned := WithOwnership(func(all []models.Issue) []models.Issue {
		return FilterOwned(all, sessions.Current())
	})
	return NewListController(lister, append(opts, owned)...)
}
