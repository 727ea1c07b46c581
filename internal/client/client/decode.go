package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"
)

// issuePayload is the wire shape of an issue. Depending on the endpoint the
// backend spells several fields differently; toIssue folds every variant
// into models.Issue so nothing downstream branches on field names.
type issuePayload struct {
	ID           models.FlexID   `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Desc         string          `json:"desc"`
	Location     string          `json:"location"`
	Latitude     *float64        `json:"latitude"`
	Longitude    *float64        `json:"longitude"`
	CategoryID   models.FlexID   `json:"categoryId"`
	Category     json.RawMessage `json:"category"`
	CategoryName string          `json:"categoryName"`
	Status       string          `json:"status"`
	ImageURL     string          `json:"imageUrl"`
	Image        string          `json:"image"`
	ReportedBy   json.RawMessage `json:"reportedBy"`
	UserID       models.FlexID   `json:"userId"`
	Username     string          `json:"username"`
	CreatedAt    json.RawMessage `json:"createdAt"`
	Date         json.RawMessage `json:"date"`
}

type refPayload struct {
	ID       models.FlexID `json:"id"`
	Name     string        `json:"name"`
	Username string        `json:"username"`
}

func (p issuePayload) toIssue(assetBase string) models.Issue {
	issue := models.Issue{
		ID:             string(p.ID),
		Title:          p.Title,
		Description:    firstNonEmpty(p.Description, p.Desc),
		Location:       p.Location,
		CategoryID:     string(p.CategoryID),
		Category:       p.CategoryName,
		Status:         models.NormalizeStatus(p.Status),
		ImageURL:       resolveImageURL(firstNonEmpty(p.ImageURL, p.Image), assetBase),
		ReportedByID:   string(p.UserID),
		ReportedByName: p.Username,
	}

	if p.Latitude != nil && p.Longitude != nil {
		issue.Latitude, issue.Longitude = p.Latitude, p.Longitude
	}

	if id, name, ok := decodeRef(p.Category); ok {
		if id != "" {
			issue.CategoryID = id
		}
		if name != "" {
			issue.Category = name
		}
	}

	if id, name, ok := decodeRef(p.ReportedBy); ok {
		if id != "" {
			issue.ReportedByID = id
		}
		if name != "" {
			issue.ReportedByName = name
		}
	}

	created := p.CreatedAt
	if isNull(created) {
		created = p.Date
	}
	issue.CreatedAt = parseTimestamp(created)

	return issue
}

// decodeRef accepts an embedded object ({id, name|username}), a bare
// string or a bare number. Bare scalars are references by id.
func decodeRef(raw json.RawMessage) (id, name string, ok bool) {
	if isNull(raw) {
		return "", "", false
	}
	var obj refPayload
	if err := json.Unmarshal(raw, &obj); err == nil {
		return string(obj.ID), firstNonEmpty(obj.Username, obj.Name), true
	}
	var scalar models.FlexID
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return string(scalar), "", true
	}
	return "", "", false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339, zone-less ISO date-times, plain dates
// and epoch milliseconds. Anything else yields the zero time, which sorts
// after every real timestamp.
func parseTimestamp(raw json.RawMessage) time.Time {
	if isNull(raw) {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		ms, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.UnixMilli(ms).UTC()
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// resolveImageURL turns backend-relative upload paths into absolute URLs.
func resolveImageURL(u, assetBase string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "uploads/") || strings.HasPrefix(u, "/uploads/") {
		return assetBase + "/" + strings.TrimPrefix(u, "/")
	}
	return u
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
