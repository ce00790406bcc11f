// Package config describes the configuration fields of actions so they can
// be listed by the API.
package config

type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeSelect   FieldType = "select"
	FieldTypeSecret   FieldType = "secret"
)

type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Field struct {
	Name         string        `json:"name"`
	Type         FieldType     `json:"type"`
	Label        string        `json:"label"`
	DefaultValue any           `json:"defaultValue,omitempty"`
	HelpText     string        `json:"helpText,omitempty"`
	Env          string        `json:"env,omitempty"`
	Required     bool          `json:"required,omitempty"`
	Options      []FieldOption `json:"options,omitempty"`
}

// ActionMeta is the description of one action kind: its name and the
// fields its configuration accepts.
type ActionMeta struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

// Defaults returns the default value of every field that has one.
func Defaults(fields []Field) map[string]string {
	out := map[string]string{}
	for _, f := range fields {
		if s, ok := f.DefaultValue.(string); ok && s != "" {
			out[f.Name] = s
		}
	}
	return out
}
