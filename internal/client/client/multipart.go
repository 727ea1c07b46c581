package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/civicdesk/internal/client/models"
)

// multipartIssue encodes a report for the with-image endpoint. Coordinates
// are only sent when both are present.
func multipartIssue(issue models.NewIssue) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"title", issue.Title},
		{"description", issue.Description},
		{"location", issue.Location},
		{"userId", issue.ReporterID},
		{"categoryId", issue.CategoryID},
	}
	if issue.Latitude != nil && issue.Longitude != nil {
		fields = append(fields,
			[2]string{"latitude", strconv.FormatFloat(*issue.Latitude, 'f', -1, 64)},
			[2]string{"longitude", strconv.FormatFloat(*issue.Longitude, 'f', -1, 64)},
		)
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	name := issue.Photo.Name
	if name == "" {
		name = "photo"
	}
	contentType := issue.Photo.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(issue.Photo.Data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
