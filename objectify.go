package crdtop

import (
	"slices"
	"strings"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/pkg/errors"
)

// SerializedField is one named field of a projected payload.
type SerializedField = rdx.Pair

// Objectify projects a payload onto a field name to value mapping, so
// merge code can read any model's fields by name.
//
// Every payload type must serialize to an object; anything else is a
// bug in the payload definition and panics.
func Objectify(val any) map[string]rdx.Value {
	v, err := rdx.Marshal(val)
	if err != nil {
		panic(errors.Wrapf(crdtop_errors.ErrNotObject, "%T: %v", val, err))
	}
	if v.Type() != rdx.Mapping {
		panic(errors.Wrapf(crdtop_errors.ErrNotObject, "%T serializes to %s", val, v))
	}
	return v.Fields()
}

// Fields is Objectify as a slice sorted by field name.
func Fields(val any) []SerializedField {
	m := Objectify(val)
	fields := make([]SerializedField, 0, len(m))
	for k, v := range m {
		fields = append(fields, SerializedField{Key: k, Value: v})
	}
	slices.SortFunc(fields, func(a, b SerializedField) int { return strings.Compare(a.Key, b.Key) })
	return fields
}
