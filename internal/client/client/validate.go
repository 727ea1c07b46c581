package client

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"
)

// ValidateNewIssue checks a report before it is sent. Every problem is
// collected into a single ErrValidation error.
func ValidateNewIssue(issue models.NewIssue, requireImage bool) error {
	var problems []string

	if strings.TrimSpace(issue.Title) == "" {
		problems = append(problems, "Title is required")
	}
	if strings.TrimSpace(issue.Description) == "" {
		problems = append(problems, "Description is required")
	}
	if strings.TrimSpace(issue.Location) == "" {
		problems = append(problems, "Location is required")
	}
	if strings.TrimSpace(issue.ReporterID) == "" {
		problems = append(problems, "User ID or username is required")
	}
	if strings.TrimSpace(issue.CategoryID) == "" {
		problems = append(problems, "Category is required")
	}
	if (issue.Latitude == nil) != (issue.Longitude == nil) {
		problems = append(problems, "Latitude and longitude must be given together")
	}
	if requireImage && (issue.Photo == nil || len(issue.Photo.Data) == 0) {
		problems = append(problems, "Image is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, ", "))
	}
	return nil
}
