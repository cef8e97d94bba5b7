package crdtop

import (
	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/pkg/errors"
)

// RelationOperation changes the membership of an item in a group of a
// many-to-many relation. Item and group may be the same id.
type RelationOperation struct {
	Relation      string
	RelationItem  Id
	RelationGroup Id
	Data          RelationOperationData
}

type RelationOperationData struct {
	Kind  DataKind
	Field string
	Value rdx.Value
}

func RelationCreate() RelationOperationData {
	return RelationOperationData{Kind: Create}
}

func RelationUpdate(field string, value rdx.Value) RelationOperationData {
	return RelationOperationData{Kind: Update, Field: field, Value: value}
}

func RelationDelete() RelationOperationData {
	return RelationOperationData{Kind: Delete}
}

func (RelationOperation) Family() Family { return FamilyRelation }

func (RelationOperation) operationType() {}

func (op RelationOperation) RdxValue() rdx.Value {
	return rdx.Object(
		rdx.Pair{Key: KeyRelation, Value: rdx.Str(op.Relation)},
		rdx.Pair{Key: KeyRelationItem, Value: op.RelationItem.RdxValue()},
		rdx.Pair{Key: KeyRelationGroup, Value: op.RelationGroup.RdxValue()},
		rdx.Pair{Key: KeyData, Value: op.Data.RdxValue()},
	)
}

func (d RelationOperationData) RdxValue() rdx.Value {
	switch d.Kind {
	case Create:
		return rdx.Str(string(Create))
	case Update:
		return updateValue(d.Field, d.Value)
	default:
		return rdx.Str(string(Delete))
	}
}

func parseRelationData(v rdx.Value) (d RelationOperationData, err error) {
	kind, body, err := parseKind(v)
	if err != nil {
		return d, err
	}
	d.Kind = kind
	switch kind {
	case Create:
		if body.Type() != rdx.None {
			return d, errors.Wrapf(crdtop_errors.ErrBadPayload, "relation create has a body %s", body)
		}
	case Update:
		d.Field, d.Value, err = parseUpdate(body)
	}
	return d, err
}

func parseRelation(rec rdx.Value) (op RelationOperation, err error) {
	name, _ := rec.Get(KeyRelation)
	var ok bool
	if op.Relation, ok = name.Text(); !ok {
		return op, errors.Wrapf(crdtop_errors.ErrBadPayload, "relation name %s", name)
	}
	item, _ := rec.Get(KeyRelationItem)
	if op.RelationItem, err = IdFromValue(item); err != nil {
		return op, err
	}
	group, _ := rec.Get(KeyRelationGroup)
	if op.RelationGroup, err = IdFromValue(group); err != nil {
		return op, err
	}
	data, _ := rec.Get(KeyData)
	op.Data, err = parseRelationData(data)
	return op, err
}
