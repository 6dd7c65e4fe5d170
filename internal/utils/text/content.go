// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-02-13
// Last Modified: 2026-10-08

package text

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

const (
	issueHeader   = "Issue generated from Tuleap's migration script.\nOriginally submitted by: "
	commentHeader = "Submitted by "
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".svg":  true,
	".webp": true,
}

var markerPattern = regexp.MustCompile(`<!-- tuleap-artifact: (\d+) -->`)

// BuildDescription constructs an issue body from the submitter name and the
// already sanitized "Original Submission" body.
// An empty body yields the attribution header alone.
func BuildDescription(submitter, body string) string {
	var sb strings.Builder
	sb.WriteString(issueHeader)
	sb.WriteString(submitter)

	if body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(body)
	}

	return sb.String()
}

// BuildComment prefixes an already sanitized comment body with its author.
// Empty bodies still produce a comment.
func BuildComment(submitter, body string) string {
	return commentHeader + submitter + "\n\n" + body
}

// AttachmentReference renders the markdown fragment pointing at target.
// Images are embedded, other files are linked.
func AttachmentReference(name, target string) string {
	label := EscapeMarkup(name)
	if strings.ContainsAny(target, " ()") {
		target = "<" + target + ">"
	}

	if IsImage(name) {
		return fmt.Sprintf("![%s](%s)", label, target)
	}
	return fmt.Sprintf("[%s](%s)", label, target)
}

// IsImage reports whether name has an image extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// ArtifactMarker returns the hidden comment that ties an issue body back to
// its Tuleap artifact.
func ArtifactMarker(id int) string {
	return fmt.Sprintf("<!-- tuleap-artifact: %d -->", id)
}

// ParseArtifactMarker extracts the artifact id from a body carrying a marker.
func ParseArtifactMarker(body string) (int, bool) {
	m := markerPattern.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}
