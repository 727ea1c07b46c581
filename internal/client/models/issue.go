// Package models defines the client-side data model of the civic issue
// reporting client: issues, statuses, sessions and local user records.
package models

import (
	"fmt"
	"time"
)

// Issue is a reported civic problem in its normalized form. The gateway
// adapter fills it from whichever field spelling the backend used.
type Issue struct {
	ID          string
	Title       string
	Description string

	// Location is a free-text address, or "lat, lng" when no address
	// could be resolved.
	Location string

	// Latitude and Longitude are either both set or both nil.
	Latitude  *float64
	Longitude *float64

	CategoryID string
	Category   string

	Status Status

	// ImageURL is empty when the issue has no photo.
	ImageURL string

	ReportedByID   string
	ReportedByName string

	CreatedAt time.Time
}

// HasCoordinates reports whether both coordinates are present.
func (i Issue) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// Reporter returns the best display name for whoever reported the issue.
func (i Issue) Reporter() string {
	if i.ReportedByName != "" {
		return i.ReportedByName
	}
	return i.ReportedByID
}

func (i Issue) String() string {
	return fmt.Sprintf("#%s [%s] %s (%s)", i.ID, i.Status.DisplayText(), i.Title, i.Location)
}

// NewIssue is the submission payload for a new report. The server assigns
// the id, the creation time and the initial status.
type NewIssue struct {
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	CategoryID  string

	// ReporterID is the user id when known, otherwise the username.
	ReporterID string

	// Photo is optional for CreateIssue and required for CreateIssueWithImage.
	Photo *Photo
}

// Photo is an image attached to a report.
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}

// Category is a selectable issue category.
type Category struct {
	ID   string
	Name string
}

// DefaultCategories mirrors the categories offered by the report form.
func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Pothole"},
		{ID: "2", Name: "Garbage Collection"},
		{ID: "3", Name: "Street Light"},
	}
}
