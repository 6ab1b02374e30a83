package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Kind discriminates the two accepted input shapes.
type Kind uint8

const (
	// KindInitData is the options-object convention.
	KindInitData Kind = iota
	// KindContentClient is the deprecated convention of passing a content
	// client directly.
	KindContentClient
)

// String returns the shape name.
func (k Kind) String() string {
	switch k {
	case KindInitData:
		return "init-data"
	case KindContentClient:
		return "content-client"
	default:
		return "unknown"
	}
}

// Input is what an engine is constructed from.
type Input struct {
	Kind     Kind
	InitData InitData
	Client   *ContentClient
}

// FromInit wraps init data.
func FromInit(d InitData) Input {
	return Input{Kind: KindInitData, InitData: d}
}

// FromClient wraps a content client.
//
// Deprecated: pass the client as InitData.StackSDK instead.
func FromClient(c *ContentClient) Input {
	return Input{Kind: KindContentClient, Client: c}
}

// InitData is the options object. Nil fields are "not supplied".
type InitData struct {
	SSR             *bool
	Enable          *bool
	CleanOnDisabled *bool
	StackDetails    StackDetailsInput
	ClientURLParams *ClientURLParamsInput
	EditButton      *EditButtonInput
	StackSDK        *ContentClient
	OnChange        func()
}

// StackDetailsInput carries explicitly supplied stack details.
type StackDetailsInput struct {
	APIKey      *string `mapstructure:"apiKey"`
	Environment *string `mapstructure:"environment"`
	Branch      *string `mapstructure:"branch"`
}

// ClientURLParamsInput carries explicitly supplied URL parts.
type ClientURLParamsInput struct {
	Protocol *string `mapstructure:"protocol"`
	Host     *string `mapstructure:"host"`
	Port     *int    `mapstructure:"port"`
}

// EditButtonInput carries explicitly supplied edit button settings. A nil
// Exclude defers to the next source.
type EditButtonInput struct {
	Enable                  *bool    `mapstructure:"enable"`
	Exclude                 []string `mapstructure:"-"`
	IncludeByQueryParameter *bool    `mapstructure:"includeByQueryParameter"`
	Position                *string  `mapstructure:"position"`
}

// ParseInput classifies an untyped object (decoded JSON or YAML) into an
// Input. An object with a "cachePolicy" property is a content client;
// anything else is init data. Unknown fields are ignored.
func ParseInput(raw map[string]any) (Input, error) {
	if raw == nil {
		return FromInit(InitData{}), nil
	}
	if _, ok := raw["cachePolicy"]; ok {
		return Input{Kind: KindContentClient, Client: ParseContentClient(raw)}, nil
	}

	var in InitData
	in.SSR = boolAt(raw, "ssr")
	in.Enable = boolAt(raw, "enable")
	in.CleanOnDisabled = first(boolAt(raw, "cleanOnDisabled"), boolAt(raw, "cleanCslpOnProduction"))

	if m := mapAt(raw, "stackDetails"); m != nil {
		if err := decode(m, &in.StackDetails); err != nil {
			return Input{}, fmt.Errorf("stackDetails: %w", err)
		}
	}
	if m := mapAt(raw, "clientUrlParams"); m != nil {
		in.ClientURLParams = &ClientURLParamsInput{}
		if err := decode(m, in.ClientURLParams); err != nil {
			return Input{}, fmt.Errorf("clientUrlParams: %w", err)
		}
	}
	if m := mapAt(raw, "editButton"); m != nil {
		in.EditButton = &EditButtonInput{}
		if err := decode(m, in.EditButton); err != nil {
			return Input{}, fmt.Errorf("editButton: %w", err)
		}
		in.EditButton.Exclude = listAt(m, "exclude")
	}
	if m := mapAt(raw, "stackSdk"); m != nil {
		in.StackSDK = ParseContentClient(m)
	}
	return FromInit(in), nil
}

// ParseContentClient reads a client object. The live_preview map is kept by
// reference so updates written into it are visible to the caller.
func ParseContentClient(raw map[string]any) *ContentClient {
	c := &ContentClient{LivePreview: mapAt(raw, "live_preview")}
	if c.LivePreview == nil {
		c.LivePreview = make(map[string]any)
		raw["live_preview"] = c.LivePreview
	}
	headers := mapAt(raw, "headers")
	c.APIKey = valueOr(first(stringAt(headers, "api_key"), stringAt(raw, "api_key")), "")
	c.Branch = valueOr(stringAt(headers, "branch"), "")
	c.Environment = valueOr(stringAt(raw, "environment"), "")
	c.CachePolicy, _ = toInt(raw["cachePolicy"])
	return c
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
