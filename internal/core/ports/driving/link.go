package driving

// LinkService resolves and opens links handed out by the backend.
type LinkService interface {
	// Resolve makes raw absolute against the server base URL and reports
	// whether the result is safe to present as a link.
	Resolve(raw string) (string, bool)

	// Open resolves raw and opens it in the user's browser.
	// Unsafe links fail with domain.ErrInvalidInput.
	Open(raw string) error
}
