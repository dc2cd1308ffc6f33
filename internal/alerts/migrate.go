package alerts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// SchemaVersion is the current persisted document version.
const SchemaVersion = 2

// Document is the persisted form of one user's alert map.
type Document struct {
	Version int               `json:"version"`
	Records map[string]Record `json:"records"`
}

// Upgrade decodes any known payload shape into a current Document.
//
//	v0: JSON array of dismissed alert ids
//	v1: bare object of id -> record
//	v2: {"version":2,"records":{...}}
//
// Dismissed ids from v0 become muted records for one ttl window.
func Upgrade(raw []byte, nowMs int64, ttl time.Duration) (Document, bool, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Document{Version: SchemaVersion, Records: map[string]Record{}}, false, nil
	}
	if !gjson.ValidBytes(raw) {
		return Document{}, false, fmt.Errorf("alert state is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	switch {
	case root.IsArray():
		return fromDismissedList(root, nowMs, ttl), true, nil
	case root.IsObject() && root.Get("version").Exists():
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return Document{}, false, fmt.Errorf("decode alert state: %w", err)
		}
		if doc.Version > SchemaVersion {
			return Document{}, false, fmt.Errorf("alert state version %d is newer than supported %d", doc.Version, SchemaVersion)
		}
		if doc.Records == nil {
			doc.Records = map[string]Record{}
		}
		upgraded := doc.Version != SchemaVersion
		doc.Version = SchemaVersion
		return doc, upgraded, nil
	case root.IsObject():
		records := map[string]Record{}
		if err := json.Unmarshal(raw, &records); err != nil {
			return Document{}, false, fmt.Errorf("decode v1 alert state: %w", err)
		}
		for id, r := range records {
			if r.ID == "" {
				r.ID = id
				records[id] = r
			}
		}
		return Document{Version: SchemaVersion, Records: records}, true, nil
	default:
		return Document{}, false, fmt.Errorf("unsupported alert state shape %s", root.Type)
	}
}

func fromDismissedList(root gjson.Result, nowMs int64, ttl time.Duration) Document {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	doc := Document{Version: SchemaVersion, Records: map[string]Record{}}
	root.ForEach(func(_, v gjson.Result) bool {
		id := strings.TrimSpace(v.String())
		if id == "" {
			return true
		}
		doc.Records[id] = Record{
			ID:         id,
			Severity:   SeverityRoutine,
			Status:     StatusMuted,
			MutedUntil: ptr(nowMs + ttl.Milliseconds()),
			UpdatedAt:  nowMs,
		}
		return true
	})
	return doc
}
