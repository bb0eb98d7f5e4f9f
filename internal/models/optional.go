package models

import "encoding/json"

// OptionalString distinguishes an absent JSON key from an explicit null.
// Set is true whenever the key was present; Value is nil for null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// IsNull reports an explicit null (or an empty string, which clients send for cleared inputs).
func (o OptionalString) IsNull() bool {
	return o.Set && (o.Value == nil || *o.Value == "")
}

func SomeString(s string) OptionalString {
	return OptionalString{Set: true, Value: &s}
}

func NullString() OptionalString {
	return OptionalString{Set: true}
}
