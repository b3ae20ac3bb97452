// Package jsonrpc provides a JSON-RPC 2.0 server endpoint built on the endpoint package's processor chain.
//
// This package implements the JSON-RPC 2.0 specification (https://www.jsonrpc.org/specification)
// and JSON-RPC over HTTP (https://www.simple-is-better.org/json-rpc/transport_http.html).
// Method resolution, argument binding and invocation are delegated to an
// Evaluator, normally a *dispatch.Evaluator.
//
// # Basic Usage
//
// Register handler groups, build an evaluator and serve it over HTTP:
//
//	reg := dispatch.NewRegistry()
//	api.Register(reg)
//	mapper, err := dispatch.NewMapper(reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	e := jsonrpc.NewEndpoint(dispatch.NewEvaluator(mapper))
//	http.Handle("/rpc", endpoint.Handler(e.Endpoint))
//	http.ListenAndServe(":8080", nil)
//
// A request such as
//
//	{"jsonrpc": "2.0", "method": "math/subtract", "params": {"a": 3, "b": 2}, "id": 1}
//
// is evaluated as method "math/subtract" with named arguments and answered
// with
//
//	{"jsonrpc": "2.0", "result": 1, "id": 1}
//
// # Batches and Notifications
//
// A body holding an array is a batch; requests are evaluated in order and
// their responses returned in an array. A request without an "id" member is
// a notification: it is evaluated but produces no response. A body made up
// only of notifications is answered with 204 No Content. WithMaxBatch limits
// the batch size.
//
// # Encodings
//
// The request Content-Type selects the codec used for both the request and
// the response:
//   - application/json (or no Content-Type)
//   - application/cbor (RFC 8949), with the same envelope as a CBOR map
//
// Any other Content-Type is rejected with 415 Unsupported Media Type.
//
// # Error Handling
//
// Failures are reported as JSON-RPC error objects built from
// *dispatch.Error. Errors that do not carry a *dispatch.Error become
// InternalError (-32603). Standard error codes are defined in package
// dispatch:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//
// # Processor Integration
//
// Processors can be passed to endpoint.Handler for cross-cutting concerns:
//
//	http.Handle("/rpc", endpoint.Handler(e.Endpoint, requestIDProcessor, logProcessor))
//
// Processor errors return HTTP error responses (not JSON-RPC errors).
package jsonrpc
