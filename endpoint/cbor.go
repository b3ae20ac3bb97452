package endpoint

import (
	"net/http"

	"github.com/fxamacker/cbor/v2"
)

// CBORRenderer serializes a value as CBOR (RFC 8949) and writes it to the
// response.
//
// Content-Type is always set to "application/cbor".
//
// The value is encoded before the header is written, so an encoding failure
// is returned without a partial response.
type CBORRenderer struct {
	Status int
	Value  any

	// EncMode optionally customizes encoding. When nil, cbor.Marshal is used.
	EncMode cbor.EncMode
}

func (cr *CBORRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	var (
		b   []byte
		err error
	)
	if cr.EncMode != nil {
		b, err = cr.EncMode.Marshal(cr.Value)
	} else {
		b, err = cbor.Marshal(cr.Value)
	}
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/cbor")
	status := cr.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}
