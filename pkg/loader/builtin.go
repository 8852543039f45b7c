package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON turns a JSON document into a module exporting its value.
var JSON Transform = &named{"json", func(source string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(source)); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return "module.exports = " + buf.String() + ";\n", nil
}}

// Raw turns any text into a module exporting it as a string.
var Raw Transform = &named{"raw", func(source string) (string, error) {
	lit, err := jsString(source)
	if err != nil {
		return "", err
	}
	return "module.exports = " + lit + ";\n", nil
}}

type named struct {
	name string
	fn   Func
}

func (n *named) Transform(source string) (string, error) { return n.fn(source) }
func (n *named) String() string                          { return n.name }

// jsString quotes s as a JavaScript string literal. JSON string syntax is a
// subset of it once U+2028 and U+2029 are escaped, which the encoder does.
func jsString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
