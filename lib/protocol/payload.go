package protocol

// ClientData is the payload of a client-data-send envelope.
type ClientData struct {
	Hash           string
	ContentTypeUID string
	EntryUID       string
	// Body is the server-rendered page body. HasBody distinguishes an
	// empty body from an absent one.
	Body    string
	HasBody bool
	// Raw is the whole payload, merged verbatim into a content client.
	Raw map[string]any
}

// ClientDataFrom reads a client-data-send payload.
func ClientDataFrom(m map[string]any) ClientData {
	d := ClientData{Raw: m}
	if v, ok := m["hash"].(string); ok {
		d.Hash = v
	}
	if v, ok := m["content_type_uid"].(string); ok {
		d.ContentTypeUID = v
	}
	if v, ok := m["entry_uid"].(string); ok {
		d.EntryUID = v
	}
	if v, ok := m["body"].(string); ok {
		d.Body = v
		d.HasBody = true
	}
	return d
}

// InitAck is the payload of an init-ack envelope.
type InitAck struct {
	ContentTypeUID string
	EntryUID       string
}

// InitAckFrom reads an init-ack payload.
func InitAckFrom(m map[string]any) InitAck {
	var a InitAck
	if v, ok := m["contentTypeUid"].(string); ok {
		a.ContentTypeUID = v
	}
	if v, ok := m["entryUid"].(string); ok {
		a.EntryUID = v
	}
	return a
}

// HistoryAction is the navigation requested by a history envelope.
type HistoryAction string

const (
	HistoryForward  HistoryAction = "forward"
	HistoryBackward HistoryAction = "backward"
	HistoryReload   HistoryAction = "reload"
)

// HistoryFrom reads a history payload. Unknown actions yield "".
func HistoryFrom(m map[string]any) HistoryAction {
	switch a := HistoryAction(stringOf(m, "type")); a {
	case HistoryForward, HistoryBackward, HistoryReload:
		return a
	}
	return ""
}

// ScrollTarget identifies the field the authoring application should
// scroll its form to.
type ScrollTarget struct {
	Field          string
	ContentTypeUID string
	EntryUID       string
	Locale         string
	Variant        string
}

// Map returns the wire payload.
func (s ScrollTarget) Map() map[string]any {
	return map[string]any{
		"field":            s.Field,
		"content_type_uid": s.ContentTypeUID,
		"entry_uid":        s.EntryUID,
		"locale":           s.Locale,
		"variant":          s.Variant,
	}
}

// ScrollTargetFrom reads a scroll payload.
func ScrollTargetFrom(m map[string]any) ScrollTarget {
	return ScrollTarget{
		Field:          stringOf(m, "field"),
		ContentTypeUID: stringOf(m, "content_type_uid"),
		EntryUID:       stringOf(m, "entry_uid"),
		Locale:         stringOf(m, "locale"),
		Variant:        stringOf(m, "variant"),
	}
}

func stringOf(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
