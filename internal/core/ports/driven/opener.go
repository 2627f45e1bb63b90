package driven

// URLOpener opens a link in the user's browser.
type URLOpener interface {
	// Open opens target. Implementations refuse unsafe URLs.
	Open(target string) error
}
