package gqlserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/graphql-go/graphql"

	"github.com/usnistgov/verbsrx/core/gqlserver"
)

type nodeTestItem struct {
	Name string
}

var (
	nodeTestItems = map[string]*nodeTestItem{
		"A": {Name: "A"},
		"B": {Name: "B"},
	}
	nodeTestNodeType *gqlserver.NodeType
)

func init() {
	nodeTestNodeType = gqlserver.NewNodeTypeNamed("NodeTestItem", (*nodeTestItem)(nil))
	nodeTestNodeType.GetID = func(source any) string {
		return source.(*nodeTestItem).Name
	}
	nodeTestNodeType.Retrieve = func(id string) (any, error) {
		return nodeTestItems[id], nil
	}
	nodeTestNodeType.Delete = func(source any) error {
		delete(nodeTestItems, source.(*nodeTestItem).Name)
		return nil
	}
	nodeTestNodeType.Register(graphql.NewObject(nodeTestNodeType.Annotate(graphql.ObjectConfig{
		Name: "NodeTestItem",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type: gqlserver.NonNullString,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*nodeTestItem).Name, nil
				},
			},
		},
	})))
}

func TestVersion(t *testing.T) {
	assert, require := makeAR(t)

	res := gqlserver.Do(context.Background(), `{ version }`, nil)
	require.Empty(res.Errors)
	assert.NotNil(res.Data.(map[string]any)["version"])
}

func TestNode(t *testing.T) {
	assert, require := makeAR(t)

	idA := nodeTestNodeType.MakeID("A")
	res := gqlserver.Do(context.Background(), `query q($id: ID!) { node(id: $id) { id ... on NodeTestItem { name } } }`,
		map[string]any{"id": idA})
	require.Empty(res.Errors)
	node := res.Data.(map[string]any)["node"].(map[string]any)
	assert.Equal(idA, node["id"])
	assert.Equal("A", node["name"])

	res = gqlserver.Do(context.Background(), `query q($id: ID!) { node(id: $id) { id } }`,
		map[string]any{"id": nodeTestNodeType.MakeID("Z")})
	assert.NotEmpty(res.Errors)

	res = gqlserver.Do(context.Background(), `mutation m($id: ID!) { delete(id: $id) }`,
		map[string]any{"id": idA})
	require.Empty(res.Errors)
	assert.Equal(true, res.Data.(map[string]any)["delete"])
	assert.NotContains(nodeTestItems, "A")
}

func TestHandler(t *testing.T) {
	assert, _ := makeAR(t)

	rec := httptest.NewRecorder()
	gqlserver.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), "Disallow: /")
}

func TestOptional(t *testing.T) {
	assert, _ := makeAR(t)
	assert.Nil(gqlserver.Optional(0))
	assert.Nil(gqlserver.Optional(""))
	assert.Nil(gqlserver.Optional(nil))
	assert.Equal(5, gqlserver.Optional(5))
}

func TestNodeBadID(t *testing.T) {
	assert, _ := makeAR(t)

	for _, id := range []string{"!", "bm9jb2xvbg", nodeTestNodeType.MakeID("B") + "x"} {
		res := gqlserver.Do(context.Background(), `query q($id: ID!) { node(id: $id) { id } }`,
			map[string]any{"id": id})
		assert.NotEmpty(res.Errors, "%s", id)
	}
}
