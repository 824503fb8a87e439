// Package gqlserver provides a GraphQL server.
// It is a singleton and is initialized via init() functions.
package gqlserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/bhoriuchi/graphql-go-tools/handler"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/core/logging"
	"github.com/usnistgov/verbsrx/core/version"
)

var logger = logging.New("gqlserver")

// Schema is the singleton of graphql.SchemaConfig.
// It must be completed during init() functions, before the first Prepare call.
var Schema = graphql.SchemaConfig{
	Query: graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: graphql.Fields{},
	}),
	Mutation: graphql.NewObject(graphql.ObjectConfig{
		Name:   "Mutation",
		Fields: graphql.Fields{},
	}),
}

// AddQuery adds a top-level query field.
func AddQuery(f *graphql.Field) {
	Schema.Query.AddFieldConfig(f.Name, f)
}

// AddMutation adds a top-level mutation field.
func AddMutation(f *graphql.Field) {
	Schema.Mutation.AddFieldConfig(f.Name, f)
}

func init() {
	AddQuery(&graphql.Field{
		Name:        "version",
		Description: "Version information.",
		Type:        NonNullJSON,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return version.V, nil
		},
	})
}

var (
	prepareOnce sync.Once
	schema      graphql.Schema
)

// Prepare builds the executable schema.
// It panics if the schema is invalid.
func Prepare() *graphql.Schema {
	prepareOnce.Do(func() {
		var e error
		if schema, e = graphql.NewSchema(Schema); e != nil {
			logger.Panic("graphql.NewSchema error", zap.Error(e))
		}
	})
	return &schema
}

// Do executes a query or mutation.
func Do(ctx context.Context, query string, vars map[string]any) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         *Prepare(),
		RequestString:  query,
		VariableValues: vars,
		Context:        ctx,
	})
}

// Handler returns an HTTP handler that serves the schema with a playground.
func Handler() http.Handler {
	h := handler.New(&handler.Config{
		Schema:           Prepare(),
		Pretty:           true,
		PlaygroundConfig: handler.NewDefaultPlaygroundConfig(),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Add("Content-Type", "text/plain")
		w.Write([]byte("User-Agent: *\nDisallow: /\n"))
	})
	mux.Handle("/", h)
	return mux
}

// Start starts the HTTP server in the background.
// The caller should shut down the returned server.
func Start(addr string) (*http.Server, error) {
	listener, e := net.Listen("tcp", addr)
	if e != nil {
		return nil, e
	}

	server := &http.Server{Handler: Handler()}
	logEntry := logger.With(zap.Stringer("addr", listener.Addr()))
	logEntry.Info("GraphQL HTTP server starting")
	go func() {
		if e := server.Serve(listener); !errors.Is(e, http.ErrServerClosed) {
			logEntry.Error("GraphQL HTTP server error", zap.Error(e))
		}
	}()
	return server, nil
}
