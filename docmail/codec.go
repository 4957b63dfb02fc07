package docmail

import "encoding/json"

// Marshal encodes a value for the message broker.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a message broker payload.
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
