package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"
)

// parseLatLng accepts "lat, lng" or "lat lng" within valid ranges.
func parseLatLng(s string) (lat, lng float64, ok bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(fields[0], 64)
	lng, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

func findCategory(answer string) (models.Category, bool) {
	for _, c := range models.DefaultCategories() {
		if answer == c.ID || strings.EqualFold(answer, c.Name) {
			return c, true
		}
	}
	return models.Category{}, false
}

// Report walks through the report form and submits a new issue. Typed
// coordinates are resolved to an address; a photo switches the upload
// to the multipart endpoint.
func (a *App) Report(ctx context.Context) error {
	cur := a.session.Current()
	if cur == nil {
		return errNoDashboard
	}

	issue := models.NewIssue{ReporterID: cur.UserID}
	if issue.ReporterID == "" {
		issue.ReporterID = cur.Username
	}

	var err error
	if issue.Title, err = GetRequiredText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if issue.Description, err = GetMultiline(a.reader, "Description", a.out); err != nil {
		return err
	}

	for _, c := range models.DefaultCategories() {
		fmt.Fprintf(a.out, "  %s) %s\n", c.ID, c.Name)
	}
	answer, err := GetRequiredText(a.reader, "Category", a.out)
	if err != nil {
		return err
	}
	cat, ok := findCategory(answer)
	if !ok {
		return fmt.Errorf("unknown category %q", answer)
	}
	issue.CategoryID = cat.ID

	loc, err := GetRequiredText(a.reader, "Location (address, or latitude,longitude)", a.out)
	if err != nil {
		return err
	}
	if lat, lng, ok := parseLatLng(loc); ok {
		issue.Latitude, issue.Longitude = &lat, &lng
		issue.Location = a.geocoder.Reverse(ctx, lat, lng)
		fmt.Fprintf(a.out, "Location: %s\n", issue.Location)
	} else {
		issue.Location = loc
	}

	ref, err := GetSimpleText(a.reader, "Photo (file path or s3://bucket/key, empty for none)", a.out)
	if err != nil {
		return err
	}

	var created models.Issue
	if ref != "" {
		if issue.Photo, err = a.photos.Load(ctx, ref); err != nil {
			return err
		}
		created, err = a.api.CreateIssueWithImage(ctx, issue)
	} else {
		created, err = a.api.CreateIssue(ctx, issue)
	}
	if err != nil {
		return a.checkAuth(ctx, err)
	}

	fmt.Fprintf(a.out, "Issue #%s reported, thank you!\n", created.ID)
	if list, derr := a.dashboard(); derr == nil {
		if err := list.Refresh(ctx); err != nil {
			a.logger.Warn(ctx, "refresh after report failed", "error", err)
		}
	}
	return nil
}
