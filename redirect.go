package livepreview

import (
	"strings"

	"github.com/pthm/livepreview/lib/config"
	"github.com/pthm/livepreview/lib/cslp"
)

// DefaultLocale is used when an address carries no locale.
const DefaultLocale = "en-us"

// RedirectURL returns the authoring application URL that opens ref's entry
// with the field focused:
//
//	{url}/#!/stack/{apiKey}/content-type/{ct}/{locale}/entry/{entry}[/variant/{v}]/edit?[branch={b}&]preview-field={path}&preview-locale={locale}&preview-environment={env}
//
// It fails with ErrMissingAPIKey or ErrMissingEnvironment when the stack is
// not fully configured.
func RedirectURL(cfg config.Config, ref cslp.Reference) (string, error) {
	sd := cfg.StackDetails
	if sd.APIKey == "" {
		return "", config.ErrMissingAPIKey
	}
	if sd.Environment == "" {
		return "", config.ErrMissingEnvironment
	}

	locale := ref.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	var b strings.Builder
	b.WriteString(cfg.ClientURLParams.URL)
	b.WriteString("/#!/stack/")
	b.WriteString(sd.APIKey)
	b.WriteString("/content-type/")
	b.WriteString(ref.ContentTypeUID)
	b.WriteString("/")
	b.WriteString(locale)
	b.WriteString("/entry/")
	b.WriteString(ref.EntryUID)
	if ref.VariantUID != "" {
		b.WriteString("/variant/")
		b.WriteString(ref.VariantUID)
	}
	b.WriteString("/edit?")
	if sd.Branch != "" {
		b.WriteString("branch=")
		b.WriteString(sd.Branch)
		b.WriteString("&")
	}
	b.WriteString("preview-field=")
	b.WriteString(ref.FieldPath)
	b.WriteString("&preview-locale=")
	b.WriteString(locale)
	b.WriteString("&preview-environment=")
	b.WriteString(sd.Environment)
	return b.String(), nil
}
