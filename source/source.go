// Package source locates and fetches the raw document for a locale.
//
// A resolver is bound to a base, which is either a local directory or a
// remote HTTP(S) URL; the scheme decides the transport once at construction.
// For every locale it enumerates a fixed list of candidate paths (two naming
// conventions across four extensions) and fetches the first one that exists:
//
//	{base}/locales/{locale}.{json,yaml,yml,xml}
//	{base}/locales/{locale}/{locale}.{ext}
//	{base}/locales/{locale}/locale.{ext}
//	{base}/locales/{locale}/translations.{ext}
//
// A missing candidate moves on to the next one. A candidate that exists but
// fails to parse, or a real transport fault, aborts the search immediately
// with a SourceError.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/valentin-kaiser/go-locale/codec"
	"github.com/valentin-kaiser/go-locale/document"
	"github.com/valentin-kaiser/go-locale/logging"
	"golang.org/x/time/rate"
)

var logger = logging.GetPackageLogger("source")

// DefaultTimeout bounds a single remote fetch
const DefaultTimeout = 30 * time.Second

// filenames tried inside a per-locale directory, besides the locale tag
// itself
var directoryNames = []string{"locale", "translations"}

// errNotExist marks a candidate as absent so iteration can continue
type errNotExist struct {
	path string
}

func (e *errNotExist) Error() string {
	return fmt.Sprintf("candidate %q does not exist", e.path)
}

// Resolver fetches and parses locale documents below a single base path or
// URL. It is safe for concurrent use.
type Resolver struct {
	base    string
	remote  bool
	client  *http.Client
	limiter *rate.Limiter
}

// NewResolver creates a resolver for the given base. Bases with an http or
// https scheme are fetched remotely with a bounded timeout, everything else
// is read from the local filesystem.
func NewResolver(base string) *Resolver {
	u, err := url.Parse(base)
	remote := err == nil && (u.Scheme == "http" || u.Scheme == "https")

	return &Resolver{
		base:   base,
		remote: remote,
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithHTTPClient replaces the HTTP client used for remote fetches
func (r *Resolver) WithHTTPClient(client *http.Client) *Resolver {
	r.client = client
	return r
}

// WithTimeout sets the timeout for a single remote fetch
func (r *Resolver) WithTimeout(timeout time.Duration) *Resolver {
	r.client.Timeout = timeout
	return r
}

// WithRateLimit bounds the rate of remote fetches. Fetches beyond the limit
// wait until the limiter admits them or the context expires.
func (r *Resolver) WithRateLimit(limit rate.Limit, burst int) *Resolver {
	r.limiter = rate.NewLimiter(limit, burst)
	return r
}

// Remote reports whether the resolver fetches over HTTP(S)
func (r *Resolver) Remote() bool {
	return r.remote
}

// Base returns the base path or URL the resolver is bound to
func (r *Resolver) Base() string {
	return r.base
}

// Resolve fetches and parses the document for a locale. It returns a
// *NotFoundError when no candidate exists and a *SourceError when a
// candidate exists but cannot be loaded or parsed.
func (r *Resolver) Resolve(ctx context.Context, locale string) (document.Node, error) {
	for _, candidate := range r.candidates(locale) {
		doc, err := r.load(ctx, candidate)
		if err == nil {
			logger.Debug().Str("locale", locale).Str("path", candidate).Msg("locale file resolved")
			return doc, nil
		}

		if _, absent := err.(*errNotExist); absent {
			continue
		}
		return nil, err
	}

	return nil, &NotFoundError{Locale: locale}
}

// Exists reports whether any candidate resolves for the locale
func (r *Resolver) Exists(ctx context.Context, locale string) bool {
	_, err := r.Resolve(ctx, locale)
	return err == nil
}

// candidates enumerates the possible locations of a locale file in
// resolution order
func (r *Resolver) candidates(locale string) []string {
	var paths []string

	for _, ext := range codec.Extensions() {
		paths = append(paths, r.join("locales", locale+"."+ext))
	}

	for _, ext := range codec.Extensions() {
		paths = append(paths, r.join("locales", locale, locale+"."+ext))
		for _, name := range directoryNames {
			paths = append(paths, r.join("locales", locale, name+"."+ext))
		}
	}

	return paths
}

func (r *Resolver) join(parts ...string) string {
	if r.remote {
		joined := r.base
		for _, p := range parts {
			joined += "/" + p
		}
		return joined
	}
	return filepath.Join(append([]string{r.base}, parts...)...)
}

// load fetches one candidate and parses it according to its extension
func (r *Resolver) load(ctx context.Context, path string) (document.Node, error) {
	format, ok := codec.FormatForPath(path)
	if !ok {
		return nil, &SourceError{Path: path, Err: fmt.Errorf("unsupported file extension")}
	}

	var data []byte
	var err error
	if r.remote {
		data, err = r.fetchRemote(ctx, path)
	} else {
		data, err = r.fetchLocal(path)
	}
	if err != nil {
		return nil, err
	}

	doc, err := codec.Parse(data, format)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return doc, nil
}

// fetchLocal reads a candidate from the filesystem. A missing file is
// reported as absent, any other read fault is a hard failure.
func (r *Resolver) fetchLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errNotExist{path: path}
		}
		return nil, &SourceError{Path: path, Err: err}
	}
	return data, nil
}

// fetchRemote performs a plain GET for a candidate URL. A non-success status
// is reported as absent so the next candidate is tried; a transport fault is
// a hard failure.
func (r *Resolver) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	if r.limiter != nil {
		err := r.limiter.Wait(ctx)
		if err != nil {
			return nil, &SourceError{Path: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &SourceError{Path: rawURL, Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &SourceError{Path: rawURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errNotExist{path: rawURL}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SourceError{Path: rawURL, Err: err}
	}
	return data, nil
}
