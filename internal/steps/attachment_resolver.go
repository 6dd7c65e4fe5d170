// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-05
// Last Modified: 2026-10-09

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
	"github.com/similigh/tuleap-migrate/internal/utils/text"
)

// maxNameAttempts bounds the collision counter.
const maxNameAttempts = 10000

// AttachmentResolver downloads every attached file under
// <root>/<artifact id>/ and references it from the description.
type AttachmentResolver struct {
	source pipeline.Source
	root   string
	fatal  bool
}

// NewAttachmentResolver creates a new attachment resolver step.
func NewAttachmentResolver(deps *pipeline.Dependencies) (*AttachmentResolver, error) {
	if deps.Source == nil {
		return nil, errors.New("attachment_resolver requires an artifact source")
	}
	if deps.AttachmentRoot == "" {
		return nil, errors.New("attachment_resolver requires an attachment root")
	}
	return &AttachmentResolver{
		source: deps.Source,
		root:   deps.AttachmentRoot,
		fatal:  deps.AttachmentsFatal,
	}, nil
}

// Name returns the step name.
func (s *AttachmentResolver) Name() string {
	return "attachment_resolver"
}

// Run resolves attachments in source order. A failed attachment is omitted
// unless failures are configured as fatal.
func (s *AttachmentResolver) Run(ctx *pipeline.Context) error {
	a := ctx.Record()

	for _, group := range a.Fields(tuleap.KindAttachments) {
		for _, fd := range group.Files {
			localPath, err := ResolveAttachment(ctx.Ctx, s.source, fd, s.root, a.ID)
			if err != nil {
				if s.fatal {
					return fmt.Errorf("attachment %q: %w", fd.Name, err)
				}
				ctx.Logger.Warn().Str("step", s.Name()).Str("file", fd.Name).Err(err).Msg("attachment omitted")
				ctx.Result.Warnings = append(ctx.Result.Warnings, fmt.Sprintf("attachment %q omitted: %v", fd.Name, err))
				continue
			}

			name := filepath.Base(localPath)
			ref := text.AttachmentReference(name, filepath.ToSlash(localPath))
			ctx.Issue.Attachments = append(ctx.Issue.Attachments, pipeline.AttachmentFile{
				Name:      name,
				URL:       fd.HTMLURL,
				LocalPath: localPath,
				Reference: ref,
			})
			ctx.Issue.Description += "\n\n" + ref
		}
	}

	if n := len(ctx.Issue.Attachments); n > 0 {
		ctx.Logger.Debug().Str("step", s.Name()).Int("count", n).Msg("attachments resolved")
	}
	return nil
}

// ResolveAttachment fetches one file and writes it under
// <root>/<artifactID>/ without overwriting anything already there.
// It returns the path of the written file.
func ResolveAttachment(ctx context.Context, src pipeline.Source, fd tuleap.FileDescriptor, root string, artifactID int) (string, error) {
	dir := filepath.Join(root, strconv.Itoa(artifactID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create attachment directory: %w", err)
	}

	if fd.HTMLURL == "" {
		return "", errors.New("file descriptor has no url")
	}

	data, err := src.FetchFile(ctx, fd.HTMLURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch file: %w", err)
	}

	return writeUnique(dir, safeName(fd), data)
}

// safeName keeps only the final path element of the source name.
func safeName(fd tuleap.FileDescriptor) string {
	name := filepath.Base(strings.ReplaceAll(fd.Name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "attachment-" + strconv.Itoa(fd.ID)
	}
	return name
}

// writeUnique creates name in dir, or 1_name, 2_name, ... when taken.
// O_EXCL makes the existence check and the creation a single operation.
func writeUnique(dir, name string, data []byte) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = strconv.Itoa(i) + "_" + name
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", name, maxNameAttempts)
}
