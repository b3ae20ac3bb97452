package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/fxamacker/cbor/v2"

	"github.com/mnehpets/onerpc/dispatch"
	"github.com/mnehpets/onerpc/endpoint"
)

// Media types accepted by the endpoint.
const (
	MediaTypeJSON = "application/json"
	MediaTypeCBOR = "application/cbor"
)

// request is a decoded envelope. id is the raw id as it appeared on the wire
// and is nil for notifications.
type request struct {
	jsonrpc string
	method  string
	params  dispatch.Arguments
	id      any
}

func (r *request) notification() bool {
	return r.id == nil
}

// codec translates between a wire format and envelopes.
type codec interface {
	// split returns the elements of a batch, or the body itself when it is a
	// single request.
	split(body []byte) (elems [][]byte, batch bool, err *dispatch.Error)
	// decode parses one element. On failure a non-nil request still carries
	// the id so the error response can echo it.
	decode(elem []byte) (*request, *dispatch.Error)
	renderer(payload any) endpoint.Renderer
}

func codecFor(mediaType string) (codec, bool) {
	switch mediaType {
	case "", MediaTypeJSON:
		return jsonCodec{}, true
	case MediaTypeCBOR:
		return cborCodec{}, true
	}
	return nil, false
}

var errInvalidID = errors.New("id must be a string, number or null")

func invalidRequest(cause error) *dispatch.Error {
	e := dispatch.NewInvalidRequestError("invalid request")
	e.Err = cause
	return e
}

type jsonCodec struct{}

type jsonRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

func (jsonCodec) split(body []byte) ([][]byte, bool, *dispatch.Error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, false, dispatch.NewParseError("parse error")
	}
	if len(body) == 0 || body[0] != '[' {
		return [][]byte{body}, false, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, false, dispatch.NewParseError("parse error")
	}
	elems := make([][]byte, len(raws))
	for i, raw := range raws {
		elems[i] = raw
	}
	return elems, true, nil
}

func (jsonCodec) decode(elem []byte) (*request, *dispatch.Error) {
	var wire jsonRequest
	if err := json.Unmarshal(elem, &wire); err != nil {
		return nil, invalidRequest(err)
	}

	req := &request{jsonrpc: wire.JSONRPC, method: wire.Method}
	if wire.ID != nil {
		if err := validJSONID(wire.ID); err != nil {
			return nil, invalidRequest(err)
		}
		req.id = wire.ID
	}

	args, err := dispatch.ParseArguments(wire.Params)
	if err != nil {
		return req, invalidRequest(err)
	}
	req.params = args
	return req, nil
}

func validJSONID(id json.RawMessage) error {
	switch id[0] {
	case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return nil
	}
	return errInvalidID
}

func (jsonCodec) renderer(payload any) endpoint.Renderer {
	return &endpoint.JSONRenderer{Value: payload}
}

type cborCodec struct{}

type cborRequest struct {
	JSONRPC string          `cbor:"jsonrpc"`
	Method  string          `cbor:"method"`
	Params  cbor.RawMessage `cbor:"params"`
	ID      cbor.RawMessage `cbor:"id"`
}

// cborMajorArray is the major type of a CBOR array in the high three bits of
// the initial byte.
const cborMajorArray = 4

func (cborCodec) split(body []byte) ([][]byte, bool, *dispatch.Error) {
	if len(body) == 0 || cbor.Wellformed(body) != nil {
		return nil, false, dispatch.NewParseError("parse error")
	}
	if body[0]>>5 != cborMajorArray {
		return [][]byte{body}, false, nil
	}

	var raws []cbor.RawMessage
	if err := cbor.Unmarshal(body, &raws); err != nil {
		return nil, false, dispatch.NewParseError("parse error")
	}
	elems := make([][]byte, len(raws))
	for i, raw := range raws {
		elems[i] = raw
	}
	return elems, true, nil
}

func (cborCodec) decode(elem []byte) (*request, *dispatch.Error) {
	var wire cborRequest
	if err := cbor.Unmarshal(elem, &wire); err != nil {
		return nil, invalidRequest(err)
	}

	req := &request{jsonrpc: wire.JSONRPC, method: wire.Method}
	if len(wire.ID) > 0 {
		if err := validCBORID(wire.ID); err != nil {
			return nil, invalidRequest(err)
		}
		req.id = wire.ID
	}

	var params any
	if len(wire.Params) > 0 {
		if err := cbor.Unmarshal(wire.Params, &params); err != nil {
			return req, invalidRequest(err)
		}
	}
	args, err := dispatch.ArgumentsOf(params)
	if err != nil {
		return req, invalidRequest(err)
	}
	req.params = args
	return req, nil
}

// validCBORID accepts unsigned and negative integers, text strings, floats
// and null.
func validCBORID(id cbor.RawMessage) error {
	switch major := id[0] >> 5; major {
	case 0, 1, 3:
		return nil
	case 7:
		switch id[0] {
		case 0xf6, 0xf9, 0xfa, 0xfb:
			return nil
		}
	}
	return errInvalidID
}

func (cborCodec) renderer(payload any) endpoint.Renderer {
	return &endpoint.CBORRenderer{Value: payload}
}
