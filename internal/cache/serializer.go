package cache

import "encoding/json"

// JSONSerializer serializes cache entries for the remote layer using
// encoding/json.
type JSONSerializer struct{}

func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

func (s *JSONSerializer) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (s *JSONSerializer) Unmarshal(data []byte, dest interface{}) error {
	return json.Unmarshal(data, dest)
}
