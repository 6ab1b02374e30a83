// Package cslp decodes and builds the field addresses ("CSLP tags") that
// rendered elements carry in their data-cslp attribute.
//
// An address names the content-repository field an element was generated
// from:
//
//	[v2:]content_type_uid.entry_uid[_variant_uid].locale.field[.field...]
//
// Numeric segments inside the field path address items of a multiple
// (repeatable) field. Decode keeps two views of the path: FieldPath with
// every index removed (usable against a content-type schema) and
// FieldPathWithIndex with the indices kept (usable against an entry payload).
package cslp

import (
	"math"
	"strconv"
	"strings"
)

// Attribute is the DOM attribute carrying an address.
const Attribute = "data-cslp"

// Address versions.
const (
	V1 = "v1"
	V2 = "v2"
)

// Reference is the decoded form of an address.
type Reference struct {
	ContentTypeUID string `json:"content_type_uid"`
	EntryUID       string `json:"entry_uid"`
	Locale         string `json:"locale"`
	// VariantUID is only set for v2 addresses.
	VariantUID string `json:"variant,omitempty"`
	// Raw is the address exactly as decoded.
	Raw string `json:"cslpValue"`
	// FieldPath has every numeric segment removed.
	FieldPath string `json:"fieldPath"`
	// FieldPathWithIndex keeps inner indices but drops a trailing one.
	FieldPathWithIndex string `json:"fieldPathWithIndex"`

	MultipleFieldMetadata MultipleFieldMetadata `json:"multipleFieldMetadata"`
	Instance              Instance              `json:"instance"`
}

// Instance holds the untrimmed field path of the addressed instance.
type Instance struct {
	FieldPathWithIndex string `json:"fieldPathWithIndex"`
}

// MultipleFieldMetadata locates the addressed item inside its parent
// multiple field. Index is -1 and ParentDetails nil when the field path has
// no numeric segment.
//
// Only meaningful when the schema already says the field is multiple; do
// not use it to infer multiplicity.
type MultipleFieldMetadata struct {
	Index         int            `json:"index"`
	ParentDetails *ParentDetails `json:"parentDetails"`
}

// ParentDetails describes the multiple field that contains an item.
type ParentDetails struct {
	ParentPath      string `json:"parentPath"`
	ParentCslpValue string `json:"parentCslpValue"`
}

// IsMultipleItem reports whether the address carries an item index.
func (r Reference) IsMultipleItem() bool {
	return r.MultipleFieldMetadata.ParentDetails != nil
}

// Decode parses an address into a Reference. Decoding never fails; missing
// segments decode as empty strings.
func Decode(address string) Reference {
	version, data := V1, address
	// A prefix longer than two characters is not a version tag.
	if prefix, rest, found := strings.Cut(address, ":"); found && len(prefix) <= 2 {
		version, data = prefix, rest
	}

	segments := strings.Split(data, ".")
	contentTypeUID := at(segments, 0)
	entryInfo := at(segments, 1)
	locale := at(segments, 2)
	var path []string
	if len(segments) > 3 {
		path = segments[3:]
	}

	ref := Reference{
		ContentTypeUID: contentTypeUID,
		EntryUID:       entryInfo,
		Locale:         locale,
		Raw:            address,
	}
	if version == V2 {
		ref.EntryUID, ref.VariantUID, _ = strings.Cut(entryInfo, "_")
	}

	ref.Instance.FieldPathWithIndex = strings.Join(path, ".")

	named := make([]string, 0, len(path))
	for _, s := range path {
		if !isIndex(s) {
			named = append(named, s)
		}
	}
	ref.FieldPath = strings.Join(named, ".")

	ref.MultipleFieldMetadata = multipleFieldMetadata(contentTypeUID, ref.EntryUID, locale, path)

	withIndex := path
	if n := len(withIndex); n > 0 && isIndex(withIndex[n-1]) {
		withIndex = withIndex[:n-1]
	}
	ref.FieldPathWithIndex = strings.Join(withIndex, ".")

	return ref
}

// multipleFieldMetadata resolves the innermost index that still has a valid
// parent slice: the last numeric segment of the path.
func multipleFieldMetadata(contentTypeUID, entryUID, locale string, path []string) MultipleFieldMetadata {
	last := -1
	for i := len(path) - 1; i >= 0; i-- {
		if isIndex(path[i]) {
			last = i
			break
		}
	}
	if last < 0 {
		return MultipleFieldMetadata{Index: -1}
	}

	parentPath := path[:last]
	parent := append([]string{contentTypeUID, entryUID, locale}, parentPath...)
	n, _ := index(path[last])
	return MultipleFieldMetadata{
		Index: n,
		ParentDetails: &ParentDetails{
			ParentPath:      strings.Join(parentPath, "."),
			ParentCslpValue: strings.Join(parent, "."),
		},
	}
}

// isIndex reports whether a segment parses as a finite number.
func isIndex(segment string) bool {
	_, ok := index(segment)
	return ok
}

func index(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(segment, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return int(f), true
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
