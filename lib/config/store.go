package config

import (
	"fmt"
	"sync"
)

// Store owns a Config. Updates run under a lock so no reader observes a
// half-merged configuration.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore creates a store holding Default().
func NewStore() *Store {
	return &Store{cfg: Default()}
}

// NewStoreWith creates a store holding cfg.
func NewStoreWith(cfg Config) *Store {
	return &Store{cfg: cfg.Clone()}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Replace swaps the whole configuration.
func (s *Store) Replace(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Clone()
}

// Reset restores Default().
func (s *Store) Reset() {
	s.Replace(Default())
}

// Update applies fn to the configuration under the write lock.
func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
}

// Set assigns a single field by dotted path:
//
//	store.Set("stackDetails.apiKey", "blt123")
//	store.Set("clientUrlParams.port", 3000)
//
// Setting protocol, host or port recomputes clientUrlParams.url.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &s.cfg
	var err error
	switch path {
	case "ssr":
		err = setBool(&c.SSR, value)
	case "enable":
		err = setBool(&c.Enable, value)
	case "cleanOnDisabled":
		err = setBool(&c.CleanOnDisabled, value)
	case "hash":
		err = setString(&c.Hash, value)
	case "stackDetails.apiKey":
		err = setString(&c.StackDetails.APIKey, value)
	case "stackDetails.environment":
		err = setString(&c.StackDetails.Environment, value)
	case "stackDetails.branch":
		err = setString(&c.StackDetails.Branch, value)
	case "stackDetails.contentTypeUid":
		err = setString(&c.StackDetails.ContentTypeUID, value)
	case "stackDetails.entryUid":
		err = setString(&c.StackDetails.EntryUID, value)
	case "clientUrlParams.protocol":
		err = setString(&c.ClientURLParams.Protocol, value)
	case "clientUrlParams.host":
		err = setString(&c.ClientURLParams.Host, value)
	case "clientUrlParams.port":
		err = setInt(&c.ClientURLParams.Port, value)
	case "editButton.enable":
		err = setBool(&c.EditButton.Enable, value)
	case "editButton.includeByQueryParameter":
		err = setBool(&c.EditButton.IncludeByQueryParameter, value)
	case "editButton.position":
		err = setString(&c.EditButton.Position, value)
	case "editButton.exclude":
		list, ok := stringList(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a list, got %T", ErrInvalidValue, path, value)
		}
		c.EditButton.Exclude = list
	case "contentClient":
		cc, ok := value.(*ContentClient)
		if !ok {
			return fmt.Errorf("%w: %s expects *ContentClient, got %T", ErrInvalidValue, path, value)
		}
		c.ContentClient = cc
	case "onChange":
		fn, ok := value.(func())
		if !ok {
			return fmt.Errorf("%w: %s expects func(), got %T", ErrInvalidValue, path, value)
		}
		c.OnChange = fn
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	c.ClientURLParams = deriveURL(c.ClientURLParams)
	return nil
}

func setBool(dst *bool, v any) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("%w: expects bool, got %T", ErrInvalidValue, v)
	}
	*dst = b
	return nil
}

func setString(dst *string, v any) error {
	str, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: expects string, got %T", ErrInvalidValue, v)
	}
	*dst = str
	return nil
}

func setInt(dst *int, v any) error {
	n, ok := toInt(v)
	if !ok {
		return fmt.Errorf("%w: expects integer, got %T", ErrInvalidValue, v)
	}
	*dst = n
	return nil
}
