package sources

import (
	"context"
	"fmt"

	"github.com/custodia-labs/knowctl/internal/adapters/driving/tui/views/editor"
	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// Submit persists an editor submission. It is registered once as the
// editor's submit handler and returns the notice shown on success.
func (v *View) Submit(ctx context.Context, sub editor.Submission) (string, error) {
	if v.service == nil {
		return "", fmt.Errorf("%w: source service", domain.ErrNotImplemented)
	}
	if sub.Editing() {
		return v.submitEdit(ctx, sub)
	}
	return v.submitCreate(ctx, sub)
}

func (v *View) submitCreate(ctx context.Context, sub editor.Submission) (string, error) {
	switch sub.Tab {
	case domain.SourceTypeText:
		if _, err := v.service.Add(ctx, domain.NewTextDraft(sub.Title, sub.Content)); err != nil {
			return "", fmt.Errorf("add text: %w", err)
		}
		return "Text added", nil

	case domain.SourceTypeFile:
		if sub.File == nil {
			return "", fmt.Errorf("%w: no file selected", domain.ErrInvalidInput)
		}
		res, err := v.service.Upload(ctx, *sub.File, "")
		if err != nil {
			return "", fmt.Errorf("upload %s: %w", sub.File.Name, err)
		}
		name := res.Filename
		if name == "" {
			name = sub.File.Name
		}
		if sub.Title != "" && sub.Title != name && res.SourceID != "" {
			if _, err := v.service.Update(ctx, res.SourceID, domain.TitlePatch(sub.Title)); err != nil {
				return "", fmt.Errorf("set title: %w", err)
			}
		}
		return "Uploaded " + name, nil

	case domain.SourceTypeURL:
		if _, err := v.service.Add(ctx, domain.NewURLDraft(sub.URI)); err != nil {
			return "", fmt.Errorf("add link: %w", err)
		}
		return "Link added", nil

	case domain.SourceTypeUnknown:
	}
	return "", domain.ErrUnsupportedType
}

func (v *View) submitEdit(ctx context.Context, sub editor.Submission) (string, error) {
	id := sub.EditingID

	var patch domain.Patch
	switch sub.Tab {
	case domain.SourceTypeText:
		title := sub.Title
		if title == "" {
			title = domain.DefaultTitle(sub.Content)
		}
		patch = domain.TextPatch(title, sub.Content)

	case domain.SourceTypeFile:
		if sub.File == nil {
			if sub.Title == "" {
				return "Nothing to update", nil
			}
			patch = domain.TitlePatch(sub.Title)
			break
		}
		res, err := v.service.Upload(ctx, *sub.File, id)
		if err != nil {
			return "", fmt.Errorf("replace file: %w", err)
		}
		name := res.Filename
		if name == "" {
			name = sub.File.Name
		}
		patch = domain.FileReplacementPatch(name, res.FileURL)
		if sub.Title != "" {
			title := sub.Title
			patch.Title = &title
		}

	case domain.SourceTypeURL:
		patch = domain.URLPatch(sub.URI)

	case domain.SourceTypeUnknown:
		return "", domain.ErrUnsupportedType
	}

	if _, err := v.service.Update(ctx, id, patch); err != nil {
		return "", fmt.Errorf("update %s: %w", id, err)
	}
	return "Source updated", nil
}
