package locale

import "fmt"

// KeyNotFoundError reports that a translation key resolved to nothing in the
// requested locale and every fallback, and no default value was supplied.
type KeyNotFoundError struct {
	Key    string
	Locale string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("translation key %q not found for locale %q", e.Key, e.Locale)
}
