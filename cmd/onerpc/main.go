// Command onerpc serves the sample API over JSON-RPC 2.0 and can evaluate
// single calls locally.
//
//	onerpc serve --addr :8080 --cors-origin https://app.example.com
//	onerpc call math/subtract '[5, 3]'
//	onerpc methods
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
