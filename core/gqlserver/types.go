package gqlserver

import (
	"reflect"

	go2gql_scalars "github.com/EGT-Ukraine/go2gql/api/scalars"
	tools_scalars "github.com/bhoriuchi/graphql-go-tools/scalars"
	"github.com/graphql-go/graphql"
)

// Scalar types.
var (
	JSON   = tools_scalars.ScalarJSON
	Bytes  = go2gql_scalars.GraphQLBytesScalar
	Uint64 = go2gql_scalars.GraphQLUInt64Scalar
	Int64  = go2gql_scalars.GraphQLInt64Scalar
)

// Non-null types.
var (
	NonNullJSON    = graphql.NewNonNull(JSON)
	NonNullUint64  = graphql.NewNonNull(Uint64)
	NonNullInt64   = graphql.NewNonNull(Int64)
	NonNullID      = graphql.NewNonNull(graphql.ID)
	NonNullBoolean = graphql.NewNonNull(graphql.Boolean)
	NonNullInt     = graphql.NewNonNull(graphql.Int)
	NonNullString  = graphql.NewNonNull(graphql.String)
)

func toNonNull(t graphql.Type) graphql.Type {
	if _, ok := t.(*graphql.NonNull); ok {
		return t
	}
	return graphql.NewNonNull(t)
}

// NewListNonNullList returns [T]! type.
func NewListNonNullList(t graphql.Type) graphql.Type {
	return graphql.NewNonNull(graphql.NewList(t))
}

// NewListNonNullBoth returns [T!]! type.
func NewListNonNullBoth(t graphql.Type) graphql.Type {
	return graphql.NewNonNull(graphql.NewList(toNonNull(t)))
}

// Optional returns nil in place of a zero value, so that it resolves to null.
func Optional(value any) any {
	if value == nil || reflect.ValueOf(value).IsZero() {
		return nil
	}
	return value
}
