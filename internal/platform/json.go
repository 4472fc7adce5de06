package platform

import (
	"bytes"
	"encoding/json"
	"io"
)

// toJSONReader marshals v and returns an io.Reader suitable for the go-gh
// REST client's body parameter. Marshal errors collapse to an empty body;
// the resulting request will fail validation server-side, which surfaces
// through the normal error path instead of a separate panic-prone case.
func toJSONReader(v any) io.Reader {
	data, err := json.Marshal(v)
	if err != nil {
		return bytes.NewReader(nil)
	}
	return bytes.NewReader(data)
}
