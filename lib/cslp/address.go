package cslp

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// Address builds an address from its parts.
//
//	cslp.Address{ContentTypeUID: "page", EntryUID: "blt1", Locale: "en-us",
//	    Path: []string{"blocks", "0", "title"}}.String()
//	// page.blt1.en-us.blocks.0.title
type Address struct {
	ContentTypeUID string
	EntryUID       string
	VariantUID     string
	Locale         string
	Path           []string
}

// String renders the wire format. The v2 prefix is only written when a
// variant is set.
func (a Address) String() string {
	entry := a.EntryUID
	prefix := ""
	if a.VariantUID != "" {
		entry += "_" + a.VariantUID
		prefix = V2 + ":"
	}
	parts := append([]string{a.ContentTypeUID, entry, a.Locale}, a.Path...)
	return prefix + strings.Join(parts, ".")
}

// Field returns a copy of a with name appended to the path.
func (a Address) Field(name string) Address {
	a.Path = append(append([]string(nil), a.Path...), name)
	return a
}

// Item returns a copy of a with an item index appended to the path.
func (a Address) Item(i int) Address {
	return a.Field(strconv.Itoa(i))
}

// Attrs returns the attribute map that tags an element with address.
//
//	<h1 { cslp.Attrs(addr)... }>{ entry.Title }</h1>
func Attrs(address string) templ.Attributes {
	return templ.Attributes{Attribute: address}
}
