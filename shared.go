package crdtop

import (
	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/pkg/errors"
)

// SharedOperation mutates a single record of a shared model.
type SharedOperation struct {
	Model    string
	RecordID rdx.Value
	Data     SharedOperationData
}

// SharedOperationData is a record creation (with its initial unique
// fields, possibly none), a single field update or a deletion.
type SharedOperationData struct {
	Kind   DataKind
	Fields map[string]rdx.Value
	Field  string
	Value  rdx.Value
}

// SharedCreate copies fields.
func SharedCreate(fields map[string]rdx.Value) SharedOperationData {
	return SharedOperationData{Kind: Create, Fields: cloneFields(fields)}
}

func SharedUpdate(field string, value rdx.Value) SharedOperationData {
	return SharedOperationData{Kind: Update, Field: field, Value: value}
}

func SharedDelete() SharedOperationData {
	return SharedOperationData{Kind: Delete}
}

func (SharedOperation) Family() Family { return FamilyShared }

func (SharedOperation) operationType() {}

func (op SharedOperation) RdxValue() rdx.Value {
	return rdx.Object(
		rdx.Pair{Key: KeyModel, Value: rdx.Str(op.Model)},
		rdx.Pair{Key: KeyRecordID, Value: op.RecordID},
		rdx.Pair{Key: KeyData, Value: op.Data.RdxValue()},
	)
}

func (d SharedOperationData) RdxValue() rdx.Value {
	switch d.Kind {
	case Create:
		return kindObject(Create, fieldsValue(d.Fields))
	case Update:
		return updateValue(d.Field, d.Value)
	default:
		return rdx.Str(string(Delete))
	}
}

func parseSharedData(v rdx.Value) (d SharedOperationData, err error) {
	kind, body, err := parseKind(v)
	if err != nil {
		return d, err
	}
	d.Kind = kind
	switch kind {
	case Create:
		if body.Type() == rdx.None {
			return d, errors.Wrap(crdtop_errors.ErrBadPayload, "shared create needs fields")
		}
		d.Fields, err = parseFields(body)
	case Update:
		d.Field, d.Value, err = parseUpdate(body)
	}
	return d, err
}

func parseShared(rec rdx.Value) (op SharedOperation, err error) {
	model, _ := rec.Get(KeyModel)
	var ok bool
	if op.Model, ok = model.Text(); !ok {
		return op, errors.Wrapf(crdtop_errors.ErrBadPayload, "shared model %s", model)
	}
	op.RecordID, _ = rec.Get(KeyRecordID)
	data, _ := rec.Get(KeyData)
	op.Data, err = parseSharedData(data)
	return op, err
}
