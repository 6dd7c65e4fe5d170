// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-03
// Last Modified: 2026-10-19

package tuleap

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Source statuses with a fixed meaning for the migration.
const (
	StatusDone     = "Done"
	StatusDeclined = "Declined"
)

// FieldKind identifies the field-groups the migration understands.
type FieldKind int

const (
	KindOther FieldKind = iota
	KindPlatform
	KindSeverity
	KindSubmission
	KindStatus
	KindAttachments
	KindAssignee
)

var kindNames = map[FieldKind]string{
	KindOther:       "other",
	KindPlatform:    "platform",
	KindSeverity:    "severity",
	KindSubmission:  "submission",
	KindStatus:      "status",
	KindAttachments: "attachments",
	KindAssignee:    "assignee",
}

func (k FieldKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// kindFor classifies a field-group from its label and field type.
func kindFor(label, fieldType string) FieldKind {
	if fieldType == "file" {
		return KindAttachments
	}
	switch strings.TrimSpace(label) {
	case "Platform":
		return KindPlatform
	case "Severity":
		return KindSeverity
	case "Original Submission":
		return KindSubmission
	case "Status":
		return KindStatus
	case "Attachments":
		return KindAttachments
	case "Assigned to":
		return KindAssignee
	}
	return KindOther
}

// User is a Tuleap account reference.
type User struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	RealName    string `json:"real_name"`
}

// BindValue is one selected option of a list field. User-bound lists carry
// the account fields as well.
type BindValue struct {
	ID          int    `json:"id"`
	Label       string `json:"label"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	RealName    string `json:"real_name"`
}

// FileDescriptor describes one attached file.
type FileDescriptor struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	HTMLURL     string `json:"html_url"`
}

// FieldGroup is one entry of an artifact's "values" array, decoded once into
// typed sub-values.
type FieldGroup struct {
	FieldID int
	Label   string
	Type    string
	Kind    FieldKind
	Text    string
	Format  string
	Options []BindValue
	Files   []FileDescriptor
}

type rawFieldGroup struct {
	FieldID          json.RawMessage `json:"field_id"`
	Label            json.RawMessage `json:"label"`
	Type             json.RawMessage `json:"type"`
	Format           json.RawMessage `json:"format"`
	Value            json.RawMessage `json:"value"`
	Values           json.RawMessage `json:"values"`
	FileDescriptions json.RawMessage `json:"file_descriptions"`
}

// UnmarshalJSON decodes a field-group tolerantly: sub-values with an
// unexpected shape are left empty instead of failing the artifact. Only a
// group that is not a JSON object is an error.
func (f *FieldGroup) UnmarshalJSON(data []byte) error {
	var raw rawFieldGroup
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	label := decodeText(raw.Label)
	fieldType := decodeText(raw.Type)
	*f = FieldGroup{
		FieldID: decodeInt(raw.FieldID),
		Label:   label,
		Type:    fieldType,
		Kind:    kindFor(label, fieldType),
		Text:    decodeText(raw.Value),
		Format:  decodeText(raw.Format),
		Options: decodeEach[BindValue](raw.Values),
		Files:   decodeEach[FileDescriptor](raw.FileDescriptions),
	}
	return nil
}

// decodeEach decodes a JSON array element by element, keeping the elements
// that decode. Anything other than an array yields nil.
func decodeEach[T any](raw json.RawMessage) []T {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	var out []T
	for _, e := range elems {
		var v T
		if err := json.Unmarshal(e, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// decodeInt accepts a JSON number or a numeric string; anything else yields 0.
func decodeInt(raw json.RawMessage) int {
	n, err := strconv.Atoi(decodeText(raw))
	if err != nil {
		return 0
	}
	return n
}

// decodeText accepts a JSON string or number; anything else yields "".
func decodeText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// FirstOption returns the first selected option, if any.
func (f FieldGroup) FirstOption() (BindValue, bool) {
	if len(f.Options) == 0 {
		return BindValue{}, false
	}
	return f.Options[0], true
}

// Artifact is a Tuleap tracker item. Summaries from the tracker listing
// carry no Values; details from GetArtifact do.
type Artifact struct {
	ID                 int          `json:"id"`
	Title              string       `json:"title"`
	Status             string       `json:"status"`
	HTMLURL            string       `json:"html_url"`
	SubmittedOn        time.Time    `json:"submitted_on"`
	LastModified       time.Time    `json:"last_modified_date"`
	SubmittedByDetails *User        `json:"submitted_by_details"`
	SubmittedByUser    *User        `json:"submitted_by_user"`
	Values             []FieldGroup `json:"values"`
}

// UnmarshalJSON decodes an artifact, dropping field-groups that cannot be
// decoded instead of failing the whole artifact.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	type plain Artifact
	var raw struct {
		plain
		Values json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Artifact(raw.plain)
	a.Values = nil

	var groups []json.RawMessage
	if len(bytes.TrimSpace(raw.Values)) > 0 {
		if err := json.Unmarshal(raw.Values, &groups); err != nil {
			log.Debug().Int("artifact_id", a.ID).Err(err).Msg("ignoring malformed values")
			return nil
		}
	}
	for i, g := range groups {
		var fg FieldGroup
		if err := json.Unmarshal(g, &fg); err != nil {
			log.Debug().Int("artifact_id", a.ID).Int("index", i).Err(err).Msg("dropping malformed field-group")
			continue
		}
		a.Values = append(a.Values, fg)
	}
	return nil
}

// Field returns the first field-group of the given kind.
func (a *Artifact) Field(kind FieldKind) (FieldGroup, bool) {
	for _, v := range a.Values {
		if v.Kind == kind {
			return v, true
		}
	}
	return FieldGroup{}, false
}

// Fields returns every field-group of the given kind in source order.
func (a *Artifact) Fields(kind FieldKind) []FieldGroup {
	var out []FieldGroup
	for _, v := range a.Values {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// Submitter returns the submitter's display name, preferring the primary
// account details over the alternate user reference.
func (a *Artifact) Submitter() string {
	return submitterName(a.SubmittedByDetails, a.SubmittedByUser)
}

// LastComment is the text carried by a changeset.
type LastComment struct {
	Body   string `json:"body"`
	Format string `json:"format"`
}

// Comment is a changeset returned by the comments query.
type Comment struct {
	ID                 int          `json:"id"`
	SubmittedOn        time.Time    `json:"submitted_on"`
	SubmittedByDetails *User        `json:"submitted_by_details"`
	SubmittedByUser    *User        `json:"submitted_by_user"`
	LastComment        *LastComment `json:"last_comment"`
}

// Submitter applies the same primary/alternate rule as Artifact.Submitter.
func (c *Comment) Submitter() string {
	return submitterName(c.SubmittedByDetails, c.SubmittedByUser)
}

// HasComment reports whether the changeset carries a comment object.
func (c *Comment) HasComment() bool {
	return c.LastComment != nil
}

func submitterName(primary, alternate *User) string {
	if primary != nil && primary.DisplayName != "" {
		return primary.DisplayName
	}
	if alternate != nil {
		return alternate.DisplayName
	}
	return ""
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "tuleap: " + e.Method + " " + e.URL + " returned status " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}
