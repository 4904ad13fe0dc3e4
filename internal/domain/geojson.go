package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CRSAdvisory is shown to the operator when an uploaded payload does not
// declare a WGS 84 coordinate reference system. The upload still proceeds.
const CRSAdvisory = "payload CRS is not EPSG:4326 (WGS 84); verify coordinates before use"

// PayloadInfo summarizes the structural checks performed on an uploaded
// GeoJSON document.
type PayloadInfo struct {
	FeatureCount int      // Number of features in the collection
	PropertyKeys []string // Attribute keys of the first feature, in document order
	CRSName      string   // Declared CRS name, empty when absent
	Warning      string   // Non-fatal advisory, empty when none
}

// payloadEnvelope is the minimal structural view of a GeoJSON document.
// Geometries are deliberately left opaque; the service stores payloads
// byte-for-byte and only the viewer interprets geometry.
type payloadEnvelope struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
	CRS      *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

type featureEnvelope struct {
	Properties json.RawMessage `json:"properties"`
}

// ValidatePayload performs the structural sanity checks required before a
// payload may be persisted: the document must be a FeatureCollection with at
// least one feature, and the first feature must carry a properties mapping.
// A CRS other than WGS 84 produces an advisory in the returned info, not an
// error.
func ValidatePayload(raw []byte) (*PayloadInfo, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ValidationError{
			Field:      "geojsonContent",
			Constraint: "valid JSON",
			Message:    "payload is not valid JSON",
		}
	}

	if env.Type != "FeatureCollection" {
		return nil, &ValidationError{
			Field:      "type",
			Value:      env.Type,
			Constraint: "FeatureCollection",
			Message:    "payload must be a FeatureCollection",
		}
	}

	if len(env.Features) == 0 {
		return nil, &ValidationError{
			Field:      "features",
			Constraint: "non-empty",
			Message:    "payload has no features",
		}
	}

	keys, err := FeaturePropertyKeys(env.Features[0])
	if err != nil {
		return nil, err
	}

	info := &PayloadInfo{
		FeatureCount: len(env.Features),
		PropertyKeys: keys,
	}

	if env.CRS != nil {
		info.CRSName = env.CRS.Properties.Name
	}
	if !CRSIsWGS84(info.CRSName) {
		info.Warning = CRSAdvisory
	}

	return info, nil
}

// CRSIsWGS84 reports whether a declared CRS name references WGS 84.
// An absent name passes: GeoJSON defaults to CRS84. The check is a
// best-effort string match, not a coordinate transformation guarantee.
func CRSIsWGS84(name string) bool {
	if name == "" {
		return true
	}
	return strings.Contains(name, "CRS84") ||
		strings.Contains(name, "4326") ||
		strings.Contains(name, "WGS")
}

// FeaturePropertyKeys returns the attribute keys of a single raw feature in
// the order they appear in the document. encoding/json maps do not preserve
// key order, so the properties object is token-scanned instead.
func FeaturePropertyKeys(rawFeature json.RawMessage) ([]string, error) {
	var feat featureEnvelope
	if err := json.Unmarshal(rawFeature, &feat); err != nil {
		return nil, &ValidationError{
			Field:      "features",
			Constraint: "valid feature",
			Message:    "feature is not a JSON object",
		}
	}

	if len(feat.Properties) == 0 || string(feat.Properties) == "null" {
		return nil, &ValidationError{
			Field:      "properties",
			Constraint: "present",
			Message:    "first feature has no properties",
		}
	}

	dec := json.NewDecoder(bytes.NewReader(feat.Properties))

	tok, err := dec.Token()
	if err != nil {
		return nil, &ValidationError{
			Field:      "properties",
			Constraint: "object",
			Message:    "feature properties are not a JSON object",
		}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &ValidationError{
			Field:      "properties",
			Value:      tok,
			Constraint: "object",
			Message:    "feature properties are not a JSON object",
		}
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &ValidationError{
				Field:      "properties",
				Constraint: "object",
				Message:    "feature properties are malformed",
			}
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &ValidationError{
				Field:      "properties",
				Value:      keyTok,
				Constraint: "string key",
				Message:    "feature properties contain a non-string key",
			}
		}
		keys = append(keys, key)

		// Consume the value, whatever shape it has.
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, &ValidationError{
				Field:      "properties",
				Constraint: "object",
				Message:    "feature properties are malformed",
			}
		}
	}

	return keys, nil
}

// FeatureInspectorEntries returns the key/value pairs of a raw feature's
// properties in document order, rendered for the per-feature inspector popup.
func FeatureInspectorEntries(rawFeature json.RawMessage) ([]InspectorEntry, error) {
	var feat featureEnvelope
	if err := json.Unmarshal(rawFeature, &feat); err != nil {
		return nil, err
	}
	if len(feat.Properties) == 0 || string(feat.Properties) == "null" {
		return nil, nil
	}

	keys, err := FeaturePropertyKeys(rawFeature)
	if err != nil {
		return nil, err
	}

	values := make(map[string]json.RawMessage, len(keys))
	if err := json.Unmarshal(feat.Properties, &values); err != nil {
		return nil, err
	}

	entries := make([]InspectorEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, InspectorEntry{
			Key:   k,
			Value: rawValueString(values[k]),
		})
	}
	return entries, nil
}

// InspectorEntry is one key/value row in a feature inspector popup.
type InspectorEntry struct {
	Key   string
	Value string
}

// rawValueString renders a raw JSON value the way the inspector displays it:
// strings unquoted, everything else as its JSON text.
func rawValueString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// RawFeatures splits a FeatureCollection document into its raw features.
// The caller is expected to have validated the payload already.
func RawFeatures(raw []byte) ([]json.RawMessage, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Features, nil
}
