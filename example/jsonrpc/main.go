package main

import (
	"context"
	"log"
	"net/http"

	"github.com/mnehpets/onerpc/api"
	"github.com/mnehpets/onerpc/dispatch"
	"github.com/mnehpets/onerpc/endpoint"
	"github.com/mnehpets/onerpc/jsonrpc"
	"github.com/mnehpets/onerpc/middleware"
)

// greeter is a stateful group: a fresh instance is created for every call.
type greeter struct {
	greeting string
}

func (g *greeter) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"hello": {
			Params: []dispatch.Param{dispatch.Optional("name", "world").As(dispatch.TypeString)},
			Func: func(_ context.Context, args []any) (any, error) {
				return g.greeting + ", " + args[0].(string) + "!", nil
			},
		},
	}
}

func main() {
	reg := dispatch.NewRegistry()
	if err := api.Register(reg, dispatch.DefaultNamespace); err != nil {
		log.Fatal(err)
	}
	reg.MustRegister("API.Greeter", func() (dispatch.Group, error) {
		return &greeter{greeting: "Hello"}, nil
	})

	mapper, err := dispatch.NewMapper(reg)
	if err != nil {
		log.Fatal(err)
	}
	e := jsonrpc.NewEndpoint(dispatch.NewEvaluator(mapper))

	// curl -d '{"jsonrpc":"2.0","method":"greeter/hello","params":{"name":"Go"},"id":1}' localhost:8080/rpc
	http.Handle("/rpc", endpoint.Handler(e.Endpoint, middleware.NewRequestIDProcessor(false)))

	log.Println("Starting server on :8080")
	log.Fatal(http.ListenAndServe(":8080", nil))
}
