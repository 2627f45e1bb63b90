package domain

// Draft is the body of an add request.
type Draft struct {
	Type    SourceType `json:"type"`
	Title   string     `json:"title"`
	Content string     `json:"content,omitempty"`
	Preview string     `json:"preview"`
	URI     string     `json:"uri,omitempty"`
}

// NewTextDraft builds a text draft. An empty title falls back to the
// start of the content; the preview is derived from the content.
func NewTextDraft(title, content string) Draft {
	if title == "" {
		title = DefaultTitle(content)
	}
	return Draft{
		Type:    SourceTypeText,
		Title:   title,
		Content: content,
		Preview: StoredPreview(content),
	}
}

// NewURLDraft builds a url draft titled by its URI.
func NewURLDraft(uri string) Draft {
	return Draft{Type: SourceTypeURL, Title: uri, URI: uri}
}

// Patch is a partial update. Nil fields are not sent.
type Patch struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Preview  *string `json:"preview,omitempty"`
	URI      *string `json:"uri,omitempty"`
	Filename *string `json:"filename,omitempty"`
	FileURL  *string `json:"file_url,omitempty"`
	Pinned   *bool   `json:"pinned,omitempty"`
}

// IsFileReplacement reports whether the patch swaps the stored file.
func (p Patch) IsFileReplacement() bool {
	return p.Filename != nil || p.FileURL != nil
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Preview == nil &&
		p.URI == nil && p.Filename == nil && p.FileURL == nil && p.Pinned == nil
}

// TextPatch edits a text source's title and content, refreshing its preview.
func TextPatch(title, content string) Patch {
	preview := StoredPreview(content)
	return Patch{Title: &title, Content: &content, Preview: &preview}
}

// URLPatch points a url source at a new URI, retitling it.
func URLPatch(uri string) Patch {
	return Patch{Title: &uri, URI: &uri}
}

// FileReplacementPatch records a newly uploaded file on an existing source.
func FileReplacementPatch(filename, fileURL string) Patch {
	return Patch{Title: &filename, Filename: &filename, FileURL: &fileURL}
}

// TitlePatch changes only the title.
func TitlePatch(title string) Patch {
	return Patch{Title: &title}
}

// PinPatch sets the pinned flag.
func PinPatch(pinned bool) Patch {
	return Patch{Pinned: &pinned}
}

// UploadResult is the backend's answer to an accepted upload.
type UploadResult struct {
	SourceID string `json:"source_id"`
	Filename string `json:"filename"`
	FileURL  string `json:"file_url"`
}
