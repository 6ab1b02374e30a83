package protocol

// Builder assembles an envelope fluently:
//
//	env := protocol.Build(protocol.TypeInit).
//	    Set("shouldReload", true).
//	    Set("href", href).
//	    Envelope()
//
// Builders are values; each call returns a new builder sharing nothing with
// the previous one.
type Builder struct {
	typ  Type
	data map[string]any
}

// Build starts an envelope of type t.
func Build(t Type) Builder {
	return Builder{typ: t}
}

// Set adds one payload field.
func (b Builder) Set(key string, value any) Builder {
	next := make(map[string]any, len(b.data)+1)
	for k, v := range b.data {
		next[k] = v
	}
	next[key] = value
	b.data = next
	return b
}

// Merge adds every field of m.
func (b Builder) Merge(m map[string]any) Builder {
	for k, v := range m {
		b = b.Set(k, v)
	}
	return b
}

// Envelope returns the finished envelope.
func (b Builder) Envelope() Envelope {
	return New(b.typ, b.data)
}

// Init announces the page to the authoring application.
func Init(shouldReload bool, href string) Envelope {
	return Build(TypeInit).Set("shouldReload", shouldReload).Set("href", href).Envelope()
}

// CheckEntryPage reports the page's current location.
func CheckEntryPage(href string) Envelope {
	return Build(TypeCheckEntryPage).Set("href", href).Envelope()
}

// Scroll asks the authoring application to focus a field.
func Scroll(target ScrollTarget) Envelope {
	return Build(TypeScroll).Merge(target.Map()).Envelope()
}

// ClientDataSend carries an update to the preview page.
func ClientDataSend(d ClientData) Envelope {
	b := Build(TypeClientDataSend).Merge(d.Raw)
	if d.Hash != "" {
		b = b.Set("hash", d.Hash)
	}
	if d.ContentTypeUID != "" {
		b = b.Set("content_type_uid", d.ContentTypeUID)
	}
	if d.EntryUID != "" {
		b = b.Set("entry_uid", d.EntryUID)
	}
	if d.HasBody {
		b = b.Set("body", d.Body)
	}
	return b.Envelope()
}

// InitAcknowledge answers an init envelope with the entry being edited.
func InitAcknowledge(a InitAck) Envelope {
	return Build(TypeInitAck).Set("contentTypeUid", a.ContentTypeUID).Set("entryUid", a.EntryUID).Envelope()
}

// History asks the preview page to navigate.
func History(action HistoryAction) Envelope {
	return Build(TypeHistory).Set("type", string(action)).Envelope()
}
