package gqlserver

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

// FieldTypes maps Go types to GraphQL types when binding struct fields.
// A mapped type becomes non-null, unless it is a pointer or slice.
//
// Without a mapping, fields are bound by kind:
//   - bool, integers, floats, and strings become non-null scalars.
//   - []byte becomes Bytes.
//   - *T becomes nullable T.
//   - []T becomes [T]; [N]T becomes [T]!.
//
// Struct tags affect binding:
//   - `json:"name"` sets the field name; fields without it are skipped.
//   - `json:",omitempty"` makes the field nullable.
//   - `gqldesc:"text"` sets the description.
//   - `gqldflt:"json"` sets the argument default value and makes it nullable.
type FieldTypes map[reflect.Type]graphql.Type

var bytesType = reflect.TypeOf([]byte(nil))

func (m FieldTypes) typeOf(typ reflect.Type) graphql.Type {
	if t, ok := m[typ]; ok {
		switch typ.Kind() {
		case reflect.Pointer, reflect.Slice:
			return t
		}
		return toNonNull(t)
	}
	if typ == bytesType {
		return Bytes
	}

	switch typ.Kind() {
	case reflect.Pointer:
		return graphql.GetNullable(m.typeOf(typ.Elem())).(graphql.Type)
	case reflect.Slice:
		return graphql.NewList(m.typeOf(typ.Elem()))
	case reflect.Array:
		return NewListNonNullList(m.typeOf(typ.Elem()))
	case reflect.Bool:
		return NonNullBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return NonNullInt
	case reflect.Int64:
		return NonNullInt64
	case reflect.Uint64:
		return NonNullUint64
	case reflect.Float32, reflect.Float64:
		return graphql.NewNonNull(graphql.Float)
	case reflect.String:
		return NonNullString
	}

	logger.Panic("no GraphQL type for Go type", zap.Stringer("type", typ))
	return nil
}

type boundField struct {
	name  string
	desc  string
	dflt  any
	typ   graphql.Type
	index []int
}

func (f boundField) resolve(p graphql.ResolveParams) (any, error) {
	v, e := reflect.Indirect(reflect.ValueOf(p.Source)).FieldByIndexErr(f.index)
	if e != nil {
		return nil, nil
	}
	return v.Interface(), nil
}

func bindStruct[T any](m FieldTypes) (list []boundField) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	for _, sf := range reflect.VisibleFields(typ) {
		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if !sf.IsExported() || name == "" || name == "-" {
			continue
		}

		f := boundField{
			name:  name,
			desc:  sf.Tag.Get("gqldesc"),
			typ:   m.typeOf(sf.Type),
			index: sf.Index,
		}
		if dflt, ok := sf.Tag.Lookup("gqldflt"); ok {
			ptr := reflect.New(sf.Type)
			if e := json.Unmarshal([]byte(dflt), ptr.Interface()); e != nil {
				logger.Panic("bad gqldflt tag", zap.String("field", sf.Name), zap.Error(e))
			}
			f.dflt = ptr.Elem().Interface()
		}
		if f.dflt != nil || slices.Contains(strings.Split(opts, ","), "omitempty") {
			f.typ = graphql.GetNullable(f.typ).(graphql.Type)
		}
		list = append(list, f)
	}
	return list
}

// BindFields creates object fields from struct T.
// Resolvers accept either T or *T as source.
func BindFields[T any](m FieldTypes) graphql.Fields {
	fields := graphql.Fields{}
	for _, f := range bindStruct[T](m) {
		fields[f.name] = &graphql.Field{
			Description: f.desc,
			Type:        f.typ,
			Resolve:     f.resolve,
		}
	}
	return fields
}

// BindArguments creates field arguments from struct T.
func BindArguments[T any](m FieldTypes) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{}
	for _, f := range bindStruct[T](m) {
		args[f.name] = &graphql.ArgumentConfig{
			Description:  f.desc,
			Type:         f.typ,
			DefaultValue: f.dflt,
		}
	}
	return args
}
