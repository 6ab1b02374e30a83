package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Query parameters the authoring application appends to preview URLs.
const (
	ParamHash           = "live_preview"
	ParamContentTypeUID = "content_type_uid"
	ParamEntryUID       = "entry_uid"
)

// MergeClientURLParams applies supplied URL parts to cur and recomputes the
// derived URL. One trailing slash is stripped from the host. When only the
// protocol is supplied the port follows it (443 for https, 80 otherwise).
func MergeClientURLParams(cur ClientURLParams, in ClientURLParamsInput) ClientURLParams {
	next := cur
	if in.Protocol != nil {
		next.Protocol = *in.Protocol
	}
	if in.Host != nil {
		next.Host = *in.Host
	}
	switch {
	case in.Port != nil:
		next.Port = *in.Port
	case in.Protocol != nil:
		next.Port = defaultPort(next.Protocol)
	}
	return deriveURL(next)
}

func defaultPort(protocol string) int {
	if strings.EqualFold(protocol, "https") {
		return 443
	}
	return 80
}

// SetConfigFromParams seeds the hash and entry identity from query
// parameters. params may be a query string (with or without the leading
// "?"), url.Values, map[string]string or map[string]any; anything else
// fails with ErrInvalidInput.
func SetConfigFromParams(store *Store, params any) error {
	values, err := queryValues(params)
	if err != nil {
		return err
	}

	hash := values.Get(ParamHash)
	contentTypeUID := values.Get(ParamContentTypeUID)
	entryUID := values.Get(ParamEntryUID)

	store.Update(func(c *Config) {
		var lp map[string]any
		if c.ContentClient != nil {
			if c.ContentClient.LivePreview == nil {
				c.ContentClient.LivePreview = make(map[string]any)
			}
			lp = c.ContentClient.LivePreview
		}
		if hash != "" {
			c.Hash = hash
			if lp != nil {
				lp["hash"] = hash
				lp["live_preview"] = hash
			}
		}
		if contentTypeUID != "" {
			c.StackDetails.ContentTypeUID = contentTypeUID
			if lp != nil {
				lp["content_type_uid"] = contentTypeUID
			}
		}
		if entryUID != "" {
			c.StackDetails.EntryUID = entryUID
			if lp != nil {
				lp["entry_uid"] = entryUID
			}
		}
	})
	return nil
}

func queryValues(params any) (url.Values, error) {
	switch p := params.(type) {
	case string:
		v, err := url.ParseQuery(strings.TrimPrefix(p, "?"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return v, nil
	case url.Values:
		return p, nil
	case map[string]string:
		v := make(url.Values, len(p))
		for key, val := range p {
			v.Set(key, val)
		}
		return v, nil
	case map[string]any:
		v := make(url.Values, len(p))
		for key, val := range p {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s is %T", ErrInvalidInput, key, val)
			}
			v.Set(key, s)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: got %T", ErrInvalidInput, params)
}
