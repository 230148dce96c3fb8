package server

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/start_watching.schema.json
var startWatchingSchema string

var (
	once    sync.Once
	schema  *jsonschema.Schema
	loadErr error
)

func load() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("start_watching.schema.json", strings.NewReader(startWatchingSchema)); err != nil {
		loadErr = err
		return
	}
	s, err := c.Compile("start_watching.schema.json")
	if err != nil {
		loadErr = err
		return
	}
	schema = s
}

// validateStartWatching validates a decoded request body against the schema.
func validateStartWatching(m map[string]any) error {
	once.Do(load)
	if loadErr != nil {
		return loadErr
	}
	b, _ := json.Marshal(m)
	var v any
	_ = json.Unmarshal(b, &v)
	return schema.Validate(v)
}
