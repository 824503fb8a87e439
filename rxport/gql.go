package rxport

import (
	"reflect"

	"github.com/graphql-go/graphql"

	"github.com/usnistgov/verbsrx/core/gqlserver"
	"github.com/usnistgov/verbsrx/core/jsonhelper"
	"github.com/usnistgov/verbsrx/core/macaddr"
	"github.com/usnistgov/verbsrx/dpdk/verbs"
)

// gqlError attaches errno to a GraphQL error.
type gqlError struct {
	error
}

func (e gqlError) Unwrap() error {
	return e.error
}

// Extensions implements gqlerrors.ExtendedError interface.
func (e gqlError) Extensions() map[string]any {
	return map[string]any{
		"errno": int(verbs.ToErrno(e.error)),
	}
}

// GraphQL types.
var (
	GqlRxPortNodeType *gqlserver.NodeType
	GqlRxPortType     *graphql.Object
	GqlRxQueueType    *graphql.Object
	GqlHashRxqType    *graphql.Object

	GqlRxModeFieldTypes = gqlserver.FieldTypes{
		reflect.TypeOf(macaddr.Flag{}): graphql.String,
	}
)

func init() {
	GqlRxQueueType = graphql.NewObject(graphql.ObjectConfig{
		Name:   "RxQueue",
		Fields: gqlserver.BindFields[QueueInfo](nil),
	})
	GqlHashRxqType = graphql.NewObject(graphql.ObjectConfig{
		Name:   "HashRxq",
		Fields: gqlserver.BindFields[HashRxqInfo](nil),
	})

	GqlRxPortNodeType = gqlserver.NewNodeTypeNamed("RxPort", (*Port)(nil))
	GqlRxPortNodeType.GetID = func(source any) string {
		return source.(*Port).Name()
	}
	GqlRxPortNodeType.Retrieve = func(id string) (any, error) {
		return Find(id), nil
	}
	GqlRxPortNodeType.Delete = func(source any) error {
		return source.(*Port).Close()
	}

	GqlRxPortType = graphql.NewObject(GqlRxPortNodeType.Annotate(graphql.ObjectConfig{
		Name: "RxPort",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type:        gqlserver.NonNullString,
				Description: "Port name.",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*Port).Name(), nil
				},
			},
			"started": &graphql.Field{
				Type:        gqlserver.NonNullBoolean,
				Description: "Whether the port is started.",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*Port).IsStarted(), nil
				},
			},
			"config": &graphql.Field{
				Type:        gqlserver.NonNullJSON,
				Description: "Port configuration.",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*Port).Config(), nil
				},
			},
			"capabilities": &graphql.Field{
				Type:        gqlserver.NonNullJSON,
				Description: "Device capabilities.",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*Port).Capabilities(), nil
				},
			},
			"rxQueues": &graphql.Field{
				Type:        gqlserver.NewListNonNullBoth(GqlRxQueueType),
				Description: "Receive queues that are set up.",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*Port).Queues(), nil
				},
			},
			"indTables": &graphql.Field{
				Type:        gqlserver.NonNullInt,
				Description: "Number of indirection tables.",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*Port).CountIndTables(), nil
				},
			},
			"hashRxqs": &graphql.Field{
				Type:        gqlserver.NewListNonNullBoth(GqlHashRxqType),
				Description: "Hash queues.",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*Port).HashRxqs(), nil
				},
			},
			"intrVec": &graphql.Field{
				Type:        gqlserver.JSON,
				Description: "Receive interrupt vector table, null if disabled.",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					t := p.Source.(*Port).IntrVec()
					if !t.Enabled() {
						return nil, nil
					}
					return t, nil
				},
			},
		},
	}))
	GqlRxPortNodeType.Register(GqlRxPortType)

	gqlserver.AddQuery(&graphql.Field{
		Name:        "rxPorts",
		Description: "List of receive ports.",
		Type:        gqlserver.NewListNonNullBoth(GqlRxPortType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return List(), nil
		},
	})

	setRxModeArgs := gqlserver.BindArguments[RxMode](GqlRxModeFieldTypes)
	setRxModeArgs["id"] = &graphql.ArgumentConfig{
		Type: gqlserver.NonNullID,
	}
	gqlserver.AddMutation(&graphql.Field{
		Name:        "setRxMode",
		Description: "Change steering rule settings of a receive port.",
		Args:        setRxModeArgs,
		Type:        graphql.NewNonNull(GqlRxPortType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			var port *Port
			if e := gqlserver.RetrieveNodeOfType(GqlRxPortNodeType, p.Args["id"], &port); e != nil {
				return nil, e
			}

			var mode RxMode
			if e := jsonhelper.Roundtrip(p.Args, &mode); e != nil {
				return nil, e
			}
			if e := port.SetRxMode(mode); e != nil {
				return nil, gqlError{e}
			}
			return port, nil
		},
	})
}
