package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Compose embeds extension schemas as top-level properties of base. The
// result keeps additionalProperties open so sections from other tools still
// validate.
func Compose(base []byte, extensions map[string][]byte) ([]byte, error) {
	var composed map[string]interface{}
	if err := json.Unmarshal(base, &composed); err != nil {
		return nil, fmt.Errorf("could not parse base schema: %w", err)
	}

	properties, _ := composed["properties"].(map[string]interface{})
	if properties == nil {
		properties = make(map[string]interface{})
		composed["properties"] = properties
	}

	keys := make([]string, 0, len(extensions))
	for key := range extensions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, exists := properties[key]; exists {
			return nil, fmt.Errorf("extension %q collides with a core property", key)
		}
		var sub map[string]interface{}
		if err := json.Unmarshal(extensions[key], &sub); err != nil {
			return nil, fmt.Errorf("could not parse schema for extension %q: %w", key, err)
		}
		// Nested documents must not redeclare the dialect or identity.
		delete(sub, "$schema")
		delete(sub, "$id")
		properties[key] = sub
	}

	composed["additionalProperties"] = true
	return json.MarshalIndent(composed, "", "  ")
}
