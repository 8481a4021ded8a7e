// Package i18n renders user-facing error messages from code templates.
package i18n

import (
	"bytes"
	"text/template"
)

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

// GetCatalog returns the catalog for the given locale.
// Only en-US is shipped; any other locale falls back to it.
func GetCatalog(locale string) *Catalog {
	_ = locale
	return enUSCatalog
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found or the
// template cannot be rendered.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}

	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return code
	}
	return buf.String()
}
