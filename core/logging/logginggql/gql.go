// Package logginggql exposes package log levels via GraphQL.
package logginggql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/usnistgov/verbsrx/core/gqlserver"
	"github.com/usnistgov/verbsrx/core/logging"
)

// LoggerInfo describes the log level of a package.
type LoggerInfo struct {
	Package string `json:"package" gqldesc:"Package name."`
	Level   string `json:"level" gqldesc:"Log level letter: V D I W E F N."`
}

func makeLoggerInfo(pl logging.PkgLevel) LoggerInfo {
	return LoggerInfo{
		Package: pl.Package(),
		Level:   string(rune(pl.Level())),
	}
}

// GqlLoggerType is the GraphQL type of LoggerInfo.
var GqlLoggerType = graphql.NewObject(graphql.ObjectConfig{
	Name:   "Logger",
	Fields: gqlserver.BindFields[LoggerInfo](nil),
})

func init() {
	gqlserver.AddQuery(&graphql.Field{
		Name:        "loggers",
		Description: "Log levels of all packages.",
		Type:        gqlserver.NewListNonNullBoth(GqlLoggerType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			list := []LoggerInfo{}
			for _, pl := range logging.ListLevels() {
				list = append(list, makeLoggerInfo(pl))
			}
			return list, nil
		},
	})

	gqlserver.AddMutation(&graphql.Field{
		Name:        "setLogLevel",
		Description: "Change log level of a package.",
		Args:        gqlserver.BindArguments[LoggerInfo](nil),
		Type:        graphql.NewNonNull(GqlLoggerType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			pkg, _ := p.Args["package"].(string)
			pl := logging.FindLevel(pkg)
			if pl == nil {
				return nil, fmt.Errorf("logger %q not found", pkg)
			}
			lvl, _ := p.Args["level"].(string)
			pl.SetLevel(lvl)
			return makeLoggerInfo(*pl), nil
		},
	})
}
