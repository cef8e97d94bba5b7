package crdtop

import (
	"maps"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/pkg/errors"
)

// OwnedOperation batches field-level mutations of records owned by the
// writing node, all under one model. Items apply in order.
type OwnedOperation struct {
	Model string
	Items []OwnedOperationItem
}

type OwnedOperationItem struct {
	ID   rdx.Value
	Data OwnedOperationData
}

type OwnedOperationData struct {
	Kind   DataKind
	Fields map[string]rdx.Value
}

func OwnedCreate(id rdx.Value, fields map[string]rdx.Value) OwnedOperationItem {
	return OwnedOperationItem{ID: id, Data: OwnedOperationData{Kind: Create, Fields: cloneFields(fields)}}
}

func OwnedUpdate(id rdx.Value, fields map[string]rdx.Value) OwnedOperationItem {
	return OwnedOperationItem{ID: id, Data: OwnedOperationData{Kind: Update, Fields: cloneFields(fields)}}
}

func OwnedDelete(id rdx.Value) OwnedOperationItem {
	return OwnedOperationItem{ID: id, Data: OwnedOperationData{Kind: Delete}}
}

// cloneFields copies fields; nil becomes an empty map.
func cloneFields(fields map[string]rdx.Value) map[string]rdx.Value {
	if fields == nil {
		return map[string]rdx.Value{}
	}
	return maps.Clone(fields)
}

func (OwnedOperation) Family() Family { return FamilyOwned }

func (OwnedOperation) operationType() {}

func (op OwnedOperation) RdxValue() rdx.Value {
	return rdx.Object(
		rdx.Pair{Key: KeyModel, Value: rdx.Str(op.Model)},
		rdx.Pair{Key: KeyData, Value: op.itemsValue()},
	)
}

func (op OwnedOperation) itemsValue() rdx.Value {
	items := make([]rdx.Value, 0, len(op.Items))
	for _, item := range op.Items {
		items = append(items, item.RdxValue())
	}
	return rdx.Array(items...)
}

func (item OwnedOperationItem) RdxValue() rdx.Value {
	return rdx.Object(
		rdx.Pair{Key: "id", Value: item.ID},
		rdx.Pair{Key: KeyData, Value: item.Data.RdxValue()},
	)
}

func (d OwnedOperationData) RdxValue() rdx.Value {
	switch d.Kind {
	case Create, Update:
		return kindObject(d.Kind, fieldsValue(d.Fields))
	default:
		return rdx.Str(string(Delete))
	}
}

func parseOwnedItem(v rdx.Value) (item OwnedOperationItem, err error) {
	id, okID := v.Get("id")
	data, okData := v.Get(KeyData)
	if !okID || !okData || v.Len() != 2 {
		return item, errors.Wrapf(crdtop_errors.ErrBadPayload, "owned item %s", v)
	}
	item.ID = id
	kind, body, err := parseKind(data)
	if err != nil {
		return item, err
	}
	item.Data.Kind = kind
	if kind == Create || kind == Update {
		if body.Type() == rdx.None {
			return item, errors.Wrapf(crdtop_errors.ErrBadPayload, "owned %s needs fields", kind)
		}
		item.Data.Fields, err = parseFields(body)
	}
	return item, err
}

func parseOwned(rec rdx.Value) (op OwnedOperation, err error) {
	model, _ := rec.Get(KeyModel)
	var ok bool
	if op.Model, ok = model.Text(); !ok {
		return op, errors.Wrapf(crdtop_errors.ErrBadPayload, "owned model %s", model)
	}
	data, _ := rec.Get(KeyData)
	op.Items, err = OwnedItemsFromValue(data)
	return op, err
}

// OwnedItemsFromValue reads the item list of an owned payload, the
// value under "data" in a record.
func OwnedItemsFromValue(data rdx.Value) ([]OwnedOperationItem, error) {
	if data.Type() != rdx.Linear {
		return nil, errors.Wrapf(crdtop_errors.ErrBadPayload, "owned data is not a sequence: %s", data)
	}
	items := make([]OwnedOperationItem, 0, data.Len())
	for _, v := range data.Items() {
		item, err := parseOwnedItem(v)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
