package endpoint

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// JSONRenderer serializes a value as JSON and writes it to the response.
//
// Content-Type is always set to "application/json". HTML characters are not
// escaped unless EncoderFactory says otherwise.
//
// Like CBORRenderer, the value is encoded before the header is written. An
// encoding failure is returned and nothing reaches the client, so the
// handler can still answer with an error status.
type JSONRenderer struct {
	Status int
	Value  any

	// EncoderFactory optionally customizes encoder creation.
	EncoderFactory func(w io.Writer) *json.Encoder
}

func (jr *JSONRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	var buf bytes.Buffer
	var enc *json.Encoder
	if jr.EncoderFactory != nil {
		enc = jr.EncoderFactory(&buf)
	} else {
		enc = json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
	}
	if enc == nil {
		return io.ErrUnexpectedEOF
	}
	if err := enc.Encode(jr.Value); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	status := jr.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
