package state

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ledgerq/internal/ir"
)

// JSON form, tagged by kind:
//
//	{"tag":"null"}
//	{"tag":"cell","value":<aligned>}
//	{"tag":"array","items":[...]}
//	{"tag":"map","entries":[{"key":<aligned>,"value":...}]}

type nodeJSON struct {
	Tag     string            `json:"tag"`
	Value   *ir.AlignedValue  `json:"value,omitempty"`
	Items   []json.RawMessage `json:"items,omitempty"`
	Entries []entryJSON       `json:"entries,omitempty"`
}

type entryJSON struct {
	Key   ir.AlignedValue `json:"key"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte(`{"tag":"null"}`), nil
}

// MarshalJSON implements json.Marshaler for Cell.
func (c *Cell) MarshalJSON() ([]byte, error) {
	v := c.v
	return json.Marshal(nodeJSON{Tag: "cell", Value: &v})
}

// MarshalJSON implements json.Marshaler for Array.
func (a *Array) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, len(a.items))
	for i, item := range a.items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		items[i] = data
	}
	return json.Marshal(struct {
		Tag   string            `json:"tag"`
		Items []json.RawMessage `json:"items"`
	}{"array", items})
}

// MarshalJSON implements json.Marshaler for Map.
func (m *Map) MarshalJSON() ([]byte, error) {
	entries := make([]entryJSON, len(m.entries))
	for i, e := range m.entries {
		data, err := json.Marshal(e.value)
		if err != nil {
			return nil, err
		}
		entries[i] = entryJSON{Key: e.key, Value: data}
	}
	return json.Marshal(struct {
		Tag     string      `json:"tag"`
		Entries []entryJSON `json:"entries"`
	}{"map", entries})
}

// UnmarshalJSON decodes a tree from its JSON form. Map entries may appear in
// any order; duplicate keys are rejected.
func UnmarshalJSON(data []byte) (Value, error) {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch raw.Tag {
	case "null":
		return Null{}, nil
	case "cell":
		if raw.Value == nil {
			return nil, fmt.Errorf("cell without value")
		}
		return &Cell{v: *raw.Value}, nil
	case "array":
		items := make([]Value, len(raw.Items))
		for i, item := range raw.Items {
			v, err := UnmarshalJSON(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &Array{items: items}, nil
	case "map":
		m := NewMap()
		for _, e := range raw.Entries {
			if m.Has(e.Key) {
				return nil, fmt.Errorf("duplicate map key %s", e.Key)
			}
			v, err := UnmarshalJSON(e.Value)
			if err != nil {
				return nil, err
			}
			m = m.With(e.Key, v)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown node tag %q", raw.Tag)
	}
}
