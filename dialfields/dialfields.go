// Package dialfields decodes the user-supplied JSON object whose members are
// merged into every converted endpoint.
package dialfields

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yllada/wgconv/converter"
)

// ErrMalformed is returned when the text is not a JSON object.
var ErrMalformed = errors.New("dial fields are not a valid JSON object")

// Parse decodes text into ordered extension fields.
//
// Blank text yields no fields and no error. Anything that is not a JSON
// object yields no fields and ErrMalformed; callers are expected to warn and
// carry on with an empty set rather than abort.
func Parse(text string) (converter.Fields, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return converter.Fields{}, nil
	}

	if !gjson.Valid(text) {
		return converter.Fields{}, ErrMalformed
	}

	result := gjson.Parse(text)
	if !result.IsObject() {
		return converter.Fields{}, ErrMalformed
	}

	fields := converter.Fields{}
	result.ForEach(func(key, value gjson.Result) bool {
		fields = append(fields, converter.Field{
			Key:   key.String(),
			Value: json.RawMessage(value.Raw),
		})
		return true
	})

	return fields, nil
}

// MustParse is Parse without the error, for callers that only want the
// lenient fallback.
func MustParse(text string) converter.Fields {
	fields, _ := Parse(text)
	return fields
}
