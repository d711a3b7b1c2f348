package jsonx

import "github.com/goccy/go-json"

// ToDynamicJSON converts val into a generic JSON object by encoding and decoding it.
func ToDynamicJSON(val any) (map[string]any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	result := make(map[string]any)
	if err = json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
