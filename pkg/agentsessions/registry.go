package agentsessions

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProvider is returned when a record names no registered provider.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrSessionNotFound is returned when no session matches an id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAmbiguousSession is returned when an id prefix matches several sessions.
	ErrAmbiguousSession = errors.New("ambiguous session id")
)

// ProviderError reports a failure scoped to one provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Registry holds a fixed, ordered set of providers.
type Registry struct {
	providers []Provider
}

// NewRegistry returns a registry over providers, in the given order.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: append([]Provider(nil), providers...)}
}

// Providers returns the registered providers in order.
func (r *Registry) Providers() []Provider {
	return append([]Provider(nil), r.providers...)
}

// Names returns the registered provider names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Lookup returns the provider called name.
func (r *Registry) Lookup(name string) (Provider, bool) {
	for _, p := range r.providers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// ListSessions concatenates every provider's records, in registry order. A
// failing provider contributes a *ProviderError to the joined error while the
// others' records are still returned.
func (r *Registry) ListSessions() ([]SessionRecord, error) {
	var records []SessionRecord
	var errs []error
	for _, p := range r.providers {
		recs, err := p.ListSessions()
		if err != nil {
			errs = append(errs, &ProviderError{Provider: p.Name(), Err: err})
		}
		records = append(records, recs...)
	}
	return records, errors.Join(errs...)
}

// ListProvider lists the sessions of a single provider.
func (r *Registry) ListProvider(name string) ([]SessionRecord, error) {
	p, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	recs, err := p.ListSessions()
	if err != nil {
		return recs, &ProviderError{Provider: name, Err: err}
	}
	return recs, nil
}

// LoadSessionEvents dispatches to the provider named by rec.Provider.
func (r *Registry) LoadSessionEvents(rec SessionRecord, mode LoadMode, includeRaw bool) ([]SessionEvent, error) {
	p, ok := r.Lookup(rec.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, rec.Provider)
	}
	return LoadEvents(p, rec, mode, includeRaw)
}

// FindSession resolves id to a record, by exact match first and then by
// unique prefix. Provider failures are tolerated as long as a match is found.
func (r *Registry) FindSession(id string) (SessionRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SessionRecord{}, ErrSessionNotFound
	}
	records, listErr := r.ListSessions()

	var prefixed []SessionRecord
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
		if strings.HasPrefix(rec.ID, id) {
			prefixed = append(prefixed, rec)
		}
	}
	switch len(prefixed) {
	case 1:
		return prefixed[0], nil
	case 0:
		if listErr != nil {
			return SessionRecord{}, fmt.Errorf("%w: %s (%w)", ErrSessionNotFound, id, listErr)
		}
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	default:
		return SessionRecord{}, fmt.Errorf("%w: %s matches %d sessions", ErrAmbiguousSession, id, len(prefixed))
	}
}
