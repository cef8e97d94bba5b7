package crdtop

import (
	"maps"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/pkg/errors"
)

// Family names one of the three mutually exclusive operation shapes.
type Family string

const (
	FamilyShared   Family = "shared"
	FamilyRelation Family = "relation"
	FamilyOwned    Family = "owned"
)

// CRDTOperationType is the payload of an operation envelope: exactly one
// of SharedOperation, RelationOperation or OwnedOperation.
type CRDTOperationType interface {
	rdx.Valuer
	Family() Family
	operationType()
}

// payloadOf unwraps a pointer to one of the three payloads. A nil
// interface or nil pointer yields nil.
func payloadOf(typ CRDTOperationType) CRDTOperationType {
	switch t := typ.(type) {
	case *SharedOperation:
		if t == nil {
			return nil
		}
		return *t
	case *RelationOperation:
		if t == nil {
			return nil
		}
		return *t
	case *OwnedOperation:
		if t == nil {
			return nil
		}
		return *t
	}
	return typ
}

// DataKind is the mutation a payload carries: c, u or d on the wire.
type DataKind byte

const (
	Create DataKind = 'c'
	Update DataKind = 'u'
	Delete DataKind = 'd'
)

func (k DataKind) String() string {
	switch k {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Shared builds a mutation of one record keyed by a model-scoped id.
// The record id may be any JSON value: text, number or composite.
// Created fields are copied.
func Shared(model string, recordID rdx.Value, data SharedOperationData) SharedOperation {
	if data.Fields != nil {
		data.Fields = maps.Clone(data.Fields)
	}
	return SharedOperation{
		Model:    model,
		RecordID: recordID,
		Data:     data,
	}
}

// Relation builds a membership change between an item and a group.
// The ids are copied.
func Relation(relation string, item, group Id, data RelationOperationData) RelationOperation {
	return RelationOperation{
		Relation:      relation,
		RelationItem:  item.Clone(),
		RelationGroup: group.Clone(),
		Data:          data,
	}
}

// Owned builds a batch of field-level mutations of records under one
// model. An empty batch is valid. Items and their fields are copied.
func Owned(model string, items []OwnedOperationItem) OwnedOperation {
	copied := make([]OwnedOperationItem, len(items))
	for i, item := range items {
		if item.Data.Fields != nil {
			item.Data.Fields = maps.Clone(item.Data.Fields)
		}
		copied[i] = item
	}
	return OwnedOperation{
		Model: model,
		Items: copied,
	}
}

// create and owned payloads: {"c": {...}} or {"u": {...}}
func kindObject(kind DataKind, body rdx.Value) rdx.Value {
	return rdx.Object(rdx.Pair{Key: string(kind), Value: body})
}

func fieldsValue(fields map[string]rdx.Value) rdx.Value {
	if fields == nil {
		return rdx.Object()
	}
	return rdx.Map(fields)
}

func updateValue(field string, value rdx.Value) rdx.Value {
	return kindObject(Update, rdx.Object(
		rdx.Pair{Key: "field", Value: rdx.Str(field)},
		rdx.Pair{Key: "value", Value: value},
	))
}

// parseKind splits a payload into its kind and body. Bare "c"/"d"
// strings have an empty body.
func parseKind(v rdx.Value) (kind DataKind, body rdx.Value, err error) {
	if s, ok := v.Text(); ok {
		if len(s) == 1 && (DataKind(s[0]) == Create || DataKind(s[0]) == Delete) {
			return DataKind(s[0]), rdx.Value{}, nil
		}
		return 0, body, errors.Wrapf(crdtop_errors.ErrBadPayload, "unknown data kind %q", s)
	}
	pairs := v.Pairs()
	if v.Type() != rdx.Mapping || len(pairs) != 1 || len(pairs[0].Key) != 1 {
		return 0, body, errors.Wrapf(crdtop_errors.ErrBadPayload, "unexpected payload %s", v)
	}
	kind = DataKind(pairs[0].Key[0])
	if kind != Create && kind != Update {
		return 0, body, errors.Wrapf(crdtop_errors.ErrBadPayload, "unknown data kind %q", pairs[0].Key)
	}
	return kind, pairs[0].Value, nil
}

func parseFields(body rdx.Value) (map[string]rdx.Value, error) {
	if body.Type() != rdx.Mapping {
		return nil, errors.Wrapf(crdtop_errors.ErrBadPayload, "fields are not an object: %s", body)
	}
	return body.Fields(), nil
}

func parseUpdate(body rdx.Value) (field string, value rdx.Value, err error) {
	f, okf := body.Get("field")
	value, okv := body.Get("value")
	field, okt := f.Text()
	if !okf || !okv || !okt || body.Len() != 2 {
		return "", value, errors.Wrapf(crdtop_errors.ErrBadPayload, "bad update %s", body)
	}
	return field, value, nil
}
