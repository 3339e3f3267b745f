package features

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Feature is one named scalar
type Feature struct {
	Name  string
	Value float64
}

// FeatureSet is an ordered list of named features. It serializes as a JSON
// object whose keys keep insertion order.
type FeatureSet []Feature

// Add appends a feature; repeated names overwrite the earlier value in place
func (fs *FeatureSet) Add(name string, value float64) {
	for i := range *fs {
		if (*fs)[i].Name == name {
			(*fs)[i].Value = value
			return
		}
	}
	*fs = append(*fs, Feature{Name: name, Value: value})
}

// Append adds every feature of other in order
func (fs *FeatureSet) Append(other FeatureSet) {
	for _, f := range other {
		fs.Add(f.Name, f.Value)
	}
}

// Get returns the value of name
func (fs FeatureSet) Get(name string) (float64, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Names returns the feature names in order
func (fs FeatureSet) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// MarshalJSON encodes the set as an ordered JSON object
func (fs FeatureSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Non-numeric values
// are rejected.
func (fs *FeatureSet) UnmarshalJSON(data []byte) error {
	parsed, err := ParseObject(data)
	if err != nil {
		return err
	}
	*fs = parsed
	return nil
}

// ParseObject reads a flat JSON object of numbers in key order. Strings that
// hold numbers are accepted; nulls become 0.
func ParseObject(data []byte) (FeatureSet, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("expected a JSON object, got %s", root.Type)
	}

	var fs FeatureSet
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Number, gjson.Null:
			fs.Add(key.String(), value.Float())
		case gjson.String:
			v := gjson.Parse(value.Str)
			if v.Type != gjson.Number {
				parseErr = fmt.Errorf("feature %q: %q is not a number", key.String(), value.Str)
				return false
			}
			fs.Add(key.String(), v.Float())
		default:
			parseErr = fmt.Errorf("feature %q: unsupported value type %s", key.String(), value.Type)
			return false
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return fs, nil
}
