package gqlserver

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

var (
	nodeTypes = map[string]*NodeType{}

	//lint:ignore ST1005 'Node' is a proper noun referring to GraphQL type
	errNotFound   = errors.New("Node not found")
	errNoRetrieve = errors.New("cannot retrieve Node")
	errNoDelete   = errors.New("cannot delete Node")
	errWrongType  = errors.New("ID refers to wrong NodeType")
)

// Node IDs are "<prefix>:<suffix>" in unpadded base64url.
// They are opaque to clients but stable across restarts.
func makeID(prefix string, suffix any) string {
	return base64.RawURLEncoding.EncodeToString(fmt.Appendf(nil, "%s:%v", prefix, suffix))
}

func parseID(id string) (prefix, suffix string, ok bool) {
	value, e := base64.RawURLEncoding.DecodeString(id)
	if e != nil {
		return "", "", false
	}
	return strings.Cut(string(value), ":")
}

// NodeType defines an object type that implements the Node interface.
type NodeType struct {
	prefix string
	typ    reflect.Type
	object *graphql.Object

	// GetID extracts the ID suffix from a source object. Required.
	GetID func(source any) string

	// Retrieve finds an object by ID suffix.
	// Returning a nil object means not found.
	Retrieve func(suffix string) (any, error)

	// Delete deletes the source object.
	Delete func(source any) error
}

// NewNodeTypeNamed creates a NodeType.
// value should be a typed nil pointer of the source object type.
func NewNodeTypeNamed(name string, value any) *NodeType {
	typ := reflect.TypeOf(value)
	if typ.Kind() == reflect.Pointer && typ.Elem().Kind() == reflect.Interface {
		typ = typ.Elem()
	}
	return &NodeType{prefix: name, typ: typ}
}

// MakeID returns the full ID of an object.
func (nt *NodeType) MakeID(suffix any) string {
	return makeID(nt.prefix, suffix)
}

// Annotate adds the Node interface and the "id" field.
func (nt *NodeType) Annotate(oc graphql.ObjectConfig) graphql.ObjectConfig {
	if nt.GetID == nil {
		logger.Panic("NodeType.GetID is missing", zap.String("prefix", nt.prefix))
	}

	interfaces, _ := oc.Interfaces.([]*graphql.Interface)
	oc.Interfaces = append(interfaces, nodeInterface)

	fields, _ := oc.Fields.(graphql.Fields)
	if fields == nil {
		fields = graphql.Fields{}
	}
	fields["id"] = &graphql.Field{
		Type:        NonNullID,
		Description: "Globally unique ID.",
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return nt.MakeID(nt.GetID(p.Source)), nil
		},
	}
	oc.Fields = fields
	return oc
}

// Register adds the object type to the schema, so that node query can find it.
func (nt *NodeType) Register(object *graphql.Object) {
	if nodeTypes[nt.prefix] != nil {
		logger.Panic("duplicate NodeType prefix", zap.String("prefix", nt.prefix))
	}
	nt.object = object
	nodeTypes[nt.prefix] = nt
	Schema.Types = append(Schema.Types, object)
}

var nodeInterface = graphql.NewInterface(graphql.InterfaceConfig{
	Name: "Node",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: NonNullID,
		},
	},
	ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
		typ := reflect.TypeOf(p.Value)
		for _, nt := range nodeTypes {
			if typ.AssignableTo(nt.typ) {
				return nt.object
			}
		}
		return nil
	},
})

func retrieveNode(id any) (*NodeType, any, error) {
	idStr, _ := id.(string)
	prefix, suffix, ok := parseID(idStr)
	if !ok {
		return nil, nil, errNotFound
	}

	nt := nodeTypes[prefix]
	if nt == nil || nt.Retrieve == nil {
		return nt, nil, errNoRetrieve
	}

	obj, e := nt.Retrieve(suffix)
	switch val := reflect.ValueOf(obj); {
	case e != nil:
		return nt, nil, e
	case obj == nil, val.Kind() == reflect.Pointer && val.IsNil():
		return nt, nil, errNotFound
	}
	return nt, obj, nil
}

// RetrieveNodeOfType finds an object by full ID and assigns it to *ptr.
// It fails if the ID belongs to a different NodeType.
func RetrieveNodeOfType(expected *NodeType, id, ptr any) error {
	nt, obj, e := retrieveNode(id)
	if e != nil {
		return e
	}
	if nt != expected {
		return errWrongType
	}
	reflect.ValueOf(ptr).Elem().Set(reflect.ValueOf(obj))
	return nil
}

func init() {
	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{
			Type: NonNullID,
		},
	}

	AddQuery(&graphql.Field{
		Name:        "node",
		Description: "Retrieve object by global ID.",
		Args:        idArg,
		Type:        nodeInterface,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			_, obj, e := retrieveNode(p.Args["id"])
			return obj, e
		},
	})

	AddMutation(&graphql.Field{
		Name:        "delete",
		Description: "Delete object by global ID. The result indicates whether the object existed.",
		Args:        idArg,
		Type:        NonNullBoolean,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			nt, obj, e := retrieveNode(p.Args["id"])
			if e != nil {
				return false, e
			}
			if nt.Delete == nil {
				return true, errNoDelete
			}
			return true, nt.Delete(obj)
		},
	})
}
