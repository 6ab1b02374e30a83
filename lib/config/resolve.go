package config

import (
	"github.com/go-logr/logr"
)

// EditButtonPolicy decides whether the edit button is enabled for the
// merged settings.
type EditButtonPolicy func(EditButton) bool

// Resolver merges an Input into a configuration.
type Resolver struct {
	// EditButton defaults to DefaultEditButtonPolicy.
	EditButton EditButtonPolicy
	Log        logr.Logger
}

// NewResolver creates a resolver with the default edit button policy.
func NewResolver(log logr.Logger) *Resolver {
	return &Resolver{EditButton: DefaultEditButtonPolicy, Log: log}
}

// Resolve merges in into the store. The merge is computed from a snapshot
// and written back in one step.
//
// A missing API key is reported as ErrMissingAPIKey; the merged
// configuration is still stored.
func (r *Resolver) Resolve(in Input, store *Store) error {
	prev := store.Get()

	var (
		next Config
		err  error
	)
	switch in.Kind {
	case KindContentClient:
		r.Log.Info("passing the content client directly is deprecated; pass it as stackSdk in the init data instead")
		next, err = r.FromContentClient(prev, in.Client)
	default:
		next, err = r.FromInitData(prev, in.InitData)
	}

	store.Replace(next)
	return err
}

// FromInitData returns prev merged with init data. Each field takes the
// explicit value, then the stack SDK's live_preview value, then prev.
func (r *Resolver) FromInitData(prev Config, in InitData) (Config, error) {
	cfg := prev.Clone()

	var lp map[string]any
	var sdkAPIKey, sdkEnv, sdkBranch *string
	if in.StackSDK != nil {
		lp = in.StackSDK.LivePreview
		sdkAPIKey = &in.StackSDK.APIKey
		sdkEnv = &in.StackSDK.Environment
		sdkBranch = &in.StackSDK.Branch
	}

	cfg.Enable = valueOr(first(in.Enable, boolAt(lp, "enable")), prev.Enable)

	// A supplied client implies client-side rendering unless told otherwise.
	cfg.SSR = valueOr(first(in.SSR, boolAt(lp, "ssr")), in.StackSDK == nil)

	cfg.CleanOnDisabled = valueOr(first(
		in.CleanOnDisabled,
		boolAt(lp, "cleanOnDisabled"),
		boolAt(lp, "cleanCslpOnProduction"),
	), prev.CleanOnDisabled)

	sd := in.StackDetails
	cfg.StackDetails.APIKey = valueOr(nonEmpty(sd.APIKey, stringAt(lp, "apiKey"), sdkAPIKey), prev.StackDetails.APIKey)
	cfg.StackDetails.Environment = valueOr(nonEmpty(sd.Environment, stringAt(lp, "environment"), sdkEnv), prev.StackDetails.Environment)
	cfg.StackDetails.Branch = valueOr(nonEmpty(sd.Branch, stringAt(lp, "branch"), sdkBranch), prev.StackDetails.Branch)

	var explicit EditButtonInput
	if in.EditButton != nil {
		explicit = *in.EditButton
	}
	cfg.EditButton = r.mergeEditButton(prev.EditButton, explicit, mapAt(lp, "editButton"))

	var urlIn ClientURLParamsInput
	if in.ClientURLParams != nil {
		urlIn = *in.ClientURLParams
	}
	cfg.ClientURLParams = MergeClientURLParams(prev.ClientURLParams, mergeURLInput(urlIn, mapAt(lp, "clientUrlParams")))

	if in.StackSDK != nil {
		cfg.ContentClient = in.StackSDK
	}
	if in.OnChange != nil {
		cfg.OnChange = in.OnChange
	}

	if cfg.StackDetails.APIKey == "" {
		return cfg, ErrMissingAPIKey
	}
	return cfg, nil
}

// FromContentClient returns prev merged with a directly supplied client.
// SSR is forced off.
func (r *Resolver) FromContentClient(prev Config, c *ContentClient) (Config, error) {
	cfg := prev.Clone()
	if c == nil {
		c = &ContentClient{}
	}
	if c.LivePreview == nil {
		c.LivePreview = make(map[string]any)
	}
	lp := c.LivePreview

	cfg.SSR = false
	cfg.Enable = valueOr(boolAt(lp, "enable"), prev.Enable)
	cfg.CleanOnDisabled = valueOr(first(boolAt(lp, "cleanOnDisabled"), boolAt(lp, "cleanCslpOnProduction")), prev.CleanOnDisabled)

	cfg.StackDetails.APIKey = valueOr(nonEmpty(stringAt(lp, "apiKey"), &c.APIKey), prev.StackDetails.APIKey)
	cfg.StackDetails.Environment = valueOr(nonEmpty(stringAt(lp, "environment"), &c.Environment), prev.StackDetails.Environment)
	cfg.StackDetails.Branch = valueOr(nonEmpty(stringAt(lp, "branch"), &c.Branch), prev.StackDetails.Branch)

	cfg.EditButton = r.mergeEditButton(prev.EditButton, EditButtonInput{}, mapAt(lp, "editButton"))
	cfg.ClientURLParams = MergeClientURLParams(prev.ClientURLParams, mergeURLInput(ClientURLParamsInput{}, mapAt(lp, "clientUrlParams")))
	cfg.ContentClient = c

	if cfg.StackDetails.APIKey == "" {
		return cfg, ErrMissingAPIKey
	}
	return cfg, nil
}

func (r *Resolver) mergeEditButton(prev EditButton, explicit EditButtonInput, nested map[string]any) EditButton {
	b := EditButton{
		Enable:                  valueOr(first(explicit.Enable, boolAt(nested, "enable")), prev.Enable),
		IncludeByQueryParameter: valueOr(first(explicit.IncludeByQueryParameter, boolAt(nested, "includeByQueryParameter")), prev.IncludeByQueryParameter),
		Position:                valueOr(first(explicit.Position, stringAt(nested, "position")), prev.Position),
	}
	switch {
	case explicit.Exclude != nil:
		b.Exclude = append([]string{}, explicit.Exclude...)
	case listAt(nested, "exclude") != nil:
		b.Exclude = listAt(nested, "exclude")
	default:
		b.Exclude = append([]string{}, prev.Exclude...)
	}

	policy := r.EditButton
	if policy == nil {
		policy = DefaultEditButtonPolicy
	}
	b.Enable = policy(b)
	return b
}

// mergeURLInput fills the unset parts of explicit from a client's
// live_preview.clientUrlParams object.
func mergeURLInput(explicit ClientURLParamsInput, nested map[string]any) ClientURLParamsInput {
	out := explicit
	out.Protocol = first(explicit.Protocol, stringAt(nested, "protocol"))
	out.Host = first(explicit.Host, stringAt(nested, "host"))
	if out.Port == nil {
		if n, ok := toInt(nested["port"]); ok {
			out.Port = &n
		}
	}
	return out
}
