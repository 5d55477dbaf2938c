package model

import (
	"encoding/json"
	"time"
)

// MemoryRecord is a single long-term memory as persisted by a store.
type MemoryRecord struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Score is the similarity annotation set during ranking. It is transient
	// and never persisted.
	Score float64 `json:"score,omitempty"`
}

// HasEmbedding reports whether the record can participate in similarity ranking.
func (r MemoryRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// Clone returns a deep copy so stores never hand out aliased slices.
func (r MemoryRecord) Clone() MemoryRecord {
	cp := r
	cp.Embedding = append([]float32(nil), r.Embedding...)
	cp.Metadata = r.Metadata.Clone()
	return cp
}

// Metadata carries the recognized memory attributes plus an open extension
// map for forward-compatible keys. Unknown JSON keys round-trip through Extra.
type Metadata struct {
	Importance int            `json:"importance,omitempty"`
	Category   string         `json:"category,omitempty"`
	Entities   []string       `json:"entities,omitempty"`
	Extra      map[string]any `json:"-"`
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	cp := m
	cp.Entities = append([]string(nil), m.Entities...)
	if m.Extra != nil {
		cp.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			cp.Extra[k] = v
		}
	}
	return cp
}

// IsZero reports whether no field is set.
func (m Metadata) IsZero() bool {
	return m.Importance == 0 && m.Category == "" && len(m.Entities) == 0 && len(m.Extra) == 0
}

// Equal compares recognized fields and the extension map by serialized form.
func (m Metadata) Equal(other Metadata) bool {
	a, _ := m.MarshalJSON()
	b, _ := other.MarshalJSON()
	return string(a) == string(b)
}

// MarshalJSON flattens the extension map alongside the recognized keys.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3+len(m.Extra))
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Importance != 0 {
		out["importance"] = m.Importance
	}
	if m.Category != "" {
		out["category"] = m.Category
	}
	if len(m.Entities) > 0 {
		out["entities"] = m.Entities
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the recognized keys out of the flat object and keeps
// the remainder in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MetadataFromMap(raw)
	return nil
}

// MetadataFromMap coerces a loosely-typed map (e.g. decoded model output or a
// legacy metadata blob) into the typed structure.
func MetadataFromMap(raw map[string]any) Metadata {
	var m Metadata
	for k, v := range raw {
		switch k {
		case "importance":
			m.Importance = IntFromAny(v)
		case "category":
			m.Category = StringFromAny(v)
		case "entities":
			m.Entities = StringSliceFromAny(v)
		default:
			if m.Extra == nil {
				m.Extra = map[string]any{}
			}
			m.Extra[k] = v
		}
	}
	return m
}

// EncodeMetadata serializes metadata to its canonical JSON string.
func EncodeMetadata(m Metadata) string {
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DecodeMetadata parses a serialized metadata blob; malformed input yields
// empty metadata rather than an error.
func DecodeMetadata(s string) Metadata {
	if s == "" {
		return Metadata{}
	}
	var m Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return Metadata{}
	}
	return m
}

func IntFromAny(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case float32:
		return int(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
	case string:
		var i int
		if err := json.Unmarshal([]byte(t), &i); err == nil {
			return i
		}
	}
	return 0
}

func StringFromAny(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func StringSliceFromAny(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := StringFromAny(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		var arr []string
		if err := json.Unmarshal([]byte(t), &arr); err == nil {
			return arr
		}
		return []string{t}
	}
	return nil
}
