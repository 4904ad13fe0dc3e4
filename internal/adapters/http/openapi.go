package http

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// The layer API is described once, in YAML; /openapi.json serves the JSON
// rendering of it.
//
//go:embed openapi.yaml
var apiSpecFS embed.FS

var (
	apiSpecJSON     []byte
	apiSpecJSONOnce sync.Once
	apiSpecJSONErr  error
)

// openAPISpecJSON returns the API specification as JSON. The embedded YAML
// is rendered once and cached for the life of the process.
func openAPISpecJSON() ([]byte, error) {
	apiSpecJSONOnce.Do(func() {
		apiSpecJSON, apiSpecJSONErr = renderAPISpec()
	})
	return apiSpecJSON, apiSpecJSONErr
}

// renderAPISpec decodes the embedded YAML and re-encodes it as JSON.
func renderAPISpec() ([]byte, error) {
	raw, err := apiSpecFS.ReadFile("openapi.yaml")
	if err != nil {
		return nil, err
	}

	var spec interface{}
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}

	return json.MarshalIndent(jsonifyKeys(spec), "", "  ")
}

// jsonifyKeys rewrites every mapping so its keys are strings. YAML allows
// non-string keys (status codes like 200 decode as ints); JSON does not.
func jsonifyKeys(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			out[key] = jsonifyKeys(value)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			out[fmt.Sprint(key)] = jsonifyKeys(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, value := range v {
			out[i] = jsonifyKeys(value)
		}
		return out
	default:
		return v
	}
}
