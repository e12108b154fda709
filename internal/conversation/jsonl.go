package conversation

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSONL writes turns to w, one JSON object per line.
func WriteJSONL(w io.Writer, turns []Turn) error {
	enc := json.NewEncoder(w)
	for i := range turns {
		if err := enc.Encode(&turns[i]); err != nil {
			return fmt.Errorf("encoding turn %d: %w", i, err)
		}
	}
	return nil
}
