package cslp

import (
	"fmt"
	"strings"
)

// ParentAttribute tags the container of a multiple field's items.
const ParentAttribute = "data-cslp-parent-field"

// AddEditableTags walks an entry payload and writes a "$" map next to every
// object, keyed by field name, holding the tag for that field. List items
// get "<field>__<i>" keys and the list itself a "<field>__parent" key.
//
// With asObject the tags are attribute maps ({"data-cslp": addr}); otherwise
// they are "data-cslp=addr" strings ready to splice into markup.
//
// Referenced entries (objects carrying "_content_type_uid" and "uid") are
// tagged against their own address. An entry with "_variant._uid" is tagged
// with v2 addresses.
func AddEditableTags(entry map[string]any, contentTypeUID, locale string, asObject bool) {
	if entry == nil {
		return
	}
	if locale == "" {
		locale = "en-us"
	}
	entry["$"] = tagsFor(entry, entryPrefix(entry, contentTypeUID, locale), locale, asObject)
}

func entryPrefix(entry map[string]any, contentTypeUID, locale string) string {
	uid, _ := entry["uid"].(string)
	if l, ok := entry["locale"].(string); ok && l != "" {
		locale = l
	}
	if variant, ok := entry["_variant"].(map[string]any); ok {
		if vuid, ok := variant["_uid"].(string); ok && vuid != "" {
			return fmt.Sprintf("%s:%s.%s_%s.%s", V2, contentTypeUID, uid, vuid, locale)
		}
	}
	return strings.Join([]string{contentTypeUID, uid, locale}, ".")
}

func tagsFor(content map[string]any, prefix, locale string, asObject bool) map[string]any {
	tags := make(map[string]any, len(content))
	for key, value := range content {
		if key == "$" {
			continue
		}
		path := prefix + "." + key
		switch v := value.(type) {
		case []any:
			for i, item := range v {
				itemPath := fmt.Sprintf("%s.%d", path, i)
				tags[fmt.Sprintf("%s__%d", key, i)] = tagValue(Attribute, itemPath, asObject)
				tags[key+"__parent"] = tagValue(ParentAttribute, path, asObject)

				obj, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if ct, ok := obj["_content_type_uid"].(string); ok {
					if _, ok := obj["uid"].(string); ok {
						obj["$"] = tagsFor(obj, entryPrefix(obj, ct, locale), locale, asObject)
						continue
					}
				}
				obj["$"] = tagsFor(obj, itemPath, locale, asObject)
			}
		case map[string]any:
			v["$"] = tagsFor(v, path, locale, asObject)
		}
		tags[key] = tagValue(Attribute, path, asObject)
	}
	return tags
}

func tagValue(attr, address string, asObject bool) any {
	if asObject {
		return map[string]string{attr: address}
	}
	return attr + "=" + address
}
