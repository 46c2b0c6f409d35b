package model

import (
	"encoding/json"
	"fmt"
)

// NodeFromJSON deserializes a node from its JSON representation.
func NodeFromJSON(schema *Schema, obj map[string]interface{}) (*Node, error) {
	if obj == nil {
		return nil, fmt.Errorf("invalid input for Node.fromJSON")
	}
	var marks []*Mark
	if raw, ok := obj["marks"]; ok && raw != nil {
		list, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid mark data for Node.fromJSON")
		}
		for _, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("invalid mark data for Node.fromJSON")
			}
			mark, err := MarkFromJSON(schema, m)
			if err != nil {
				return nil, err
			}
			marks = append(marks, mark)
		}
	}
	name, _ := obj["type"].(string)
	if name == "text" {
		text, ok := obj["text"].(string)
		if !ok || text == "" {
			return nil, fmt.Errorf("invalid text node in JSON")
		}
		return schema.Text(text, marks...), nil
	}
	typ, err := schema.NodeType(name)
	if err != nil {
		return nil, err
	}
	content, err := FragmentFromJSON(schema, obj["content"])
	if err != nil {
		return nil, err
	}
	attrs, _ := obj["attrs"].(map[string]interface{})
	if err := typ.CheckContent(content); err != nil {
		return nil, err
	}
	if err := checkAttrs(typ.Name, typ.Attrs, attrs); err != nil {
		return nil, err
	}
	return typ.Create(attrs, content, marks)
}

// AttrInt reads an integer attribute, which may have been decoded from JSON
// as a float.
func AttrInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case int64:
		return int(v), true
	}
	return 0, false
}

// ParseJSON decodes a document from JSON bytes.
func ParseJSON(schema *Schema, data []byte) (*Node, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return NodeFromJSON(schema, obj)
}

// MarshalJSON encodes a node with its JSON representation.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ToJSON())
}
