// Package yamlflag provides a command line flag that accepts a YAML document.
package yamlflag

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"reflect"
	"strings"

	"github.com/ghodss/yaml"
)

// New creates a flag.Getter that decodes a YAML document into value.
//
// The flag accepts the document inline, or a filename prefixed with '@':
//
//	--config="nRxQueues: 4"
//	--config=@port.yaml
//
// The document is decoded via its JSON equivalent, so that json struct tags apply.
// Unknown fields are rejected.
// value must be a pointer; otherwise New panics.
func New(value any) flag.Getter {
	if kind := reflect.ValueOf(value).Kind(); kind != reflect.Pointer {
		panic(kind)
	}
	return &flagValue{value}
}

type flagValue struct {
	value any
}

func (v *flagValue) Get() any {
	return v.value
}

func (v *flagValue) Set(s string) error {
	doc := []byte(s)
	if filename, ok := strings.CutPrefix(s, "@"); ok {
		var e error
		if doc, e = os.ReadFile(filename); e != nil {
			return e
		}
	}

	j, e := yaml.YAMLToJSON(doc)
	if e != nil {
		return e
	}
	decoder := json.NewDecoder(bytes.NewReader(j))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v.value)
}

func (v *flagValue) String() string {
	j, _ := json.Marshal(v.value)
	return string(j)
}
