package source

import "fmt"

// NotFoundError reports that no candidate file resolved for a locale in any
// supported format. It is recoverable: the engine walks the fallback chain
// before surfacing it.
type NotFoundError struct {
	Locale string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no locale file found for %q in any supported format", e.Locale)
}

// SourceError reports that a candidate existed but could not be used: the
// content failed to parse or the transport reported a real fault. It is not
// retried against sibling candidates, since a malformed file indicates a
// content problem rather than absence.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("loading locale file %q failed: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
