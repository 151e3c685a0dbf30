package utils

import "encoding/json"

// MustMarshalJSON marshals v and panics on failure. Reserved for values the
// caller constructed itself, where a marshalling error is a programming bug.
func MustMarshalJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("failed to marshal JSON: " + err.Error())
	}
	return data
}
