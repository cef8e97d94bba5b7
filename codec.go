package crdtop

import (
	"slices"
	"strings"

	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/hlc"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/pkg/errors"
)

// Record keys. The family keys are flattened into the top level
// record next to the envelope keys.
const (
	KeyNode      = "n"
	KeyTimestamp = "t"
	KeyFamily    = "f"

	KeyModel         = "model"
	KeyRecordID      = "record_id"
	KeyData          = "data"
	KeyRelation      = "relation"
	KeyRelationItem  = "relation_item"
	KeyRelationGroup = "relation_group"
)

// Structural match priority for records written without the family tag.
var familyOrder = []Family{FamilyShared, FamilyRelation, FamilyOwned}

var familyKeys = map[Family][]string{
	FamilyShared:   {KeyData, KeyModel, KeyRecordID},
	FamilyRelation: {KeyData, KeyRelation, KeyRelationGroup, KeyRelationItem},
	FamilyOwned:    {KeyData, KeyModel},
}

// FamilyKeys lists the keys a family flattens into the record, sorted.
func FamilyKeys(f Family) []string {
	return slices.Clone(familyKeys[f])
}

func Families() []Family {
	return slices.Clone(familyOrder)
}

func (op CRDTOperation) envelope(tagged bool) (rdx.Value, error) {
	typ := payloadOf(op.Typ)
	if typ == nil {
		return rdx.Value{}, errors.Wrap(crdtop_errors.ErrBadOperation, "no operation type")
	}
	if err := op.Timestamp.Check(); err != nil {
		return rdx.Value{}, err
	}
	payload := typ.RdxValue()
	pairs := make([]rdx.Pair, 0, payload.Len()+3)
	pairs = append(pairs,
		rdx.Pair{Key: KeyNode, Value: op.Node.RdxValue()},
		rdx.Pair{Key: KeyTimestamp, Value: op.Timestamp.RdxValue()},
	)
	if tagged {
		pairs = append(pairs, rdx.Pair{Key: KeyFamily, Value: rdx.Str(string(typ.Family()))})
	}
	pairs = append(pairs, payload.Pairs()...)
	return rdx.Object(pairs...), nil
}

// RdxValue is the tagged record; it panics on an operation without a type.
func (op CRDTOperation) RdxValue() rdx.Value {
	rec, err := op.envelope(true)
	if err != nil {
		panic(err)
	}
	return rec
}

// Encode writes the canonical tagged JSON record. Identical operations
// always produce identical bytes.
func Encode(op CRDTOperation) ([]byte, error) {
	rec, err := op.envelope(true)
	if err != nil {
		return nil, err
	}
	return rec.MarshalJSON()
}

// EncodeUntagged writes the legacy form without the family key;
// decoders infer the family from the key set.
func EncodeUntagged(op CRDTOperation) ([]byte, error) {
	rec, err := op.envelope(false)
	if err != nil {
		return nil, err
	}
	return rec.MarshalJSON()
}

func (op CRDTOperation) MarshalJSON() ([]byte, error) {
	return Encode(op)
}

func (op *CRDTOperation) UnmarshalJSON(data []byte) (err error) {
	*op, err = Decode(data)
	return
}

func Decode(data []byte) (CRDTOperation, error) {
	rec, err := rdx.ParseJSON(data)
	if err != nil {
		return CRDTOperation{}, errors.Wrap(crdtop_errors.ErrBadOperation, err.Error())
	}
	return DecodeValue(rec)
}

// DecodeValue reads an operation from a parsed record, tagged or not.
func DecodeValue(rec rdx.Value) (op CRDTOperation, err error) {
	if rec.Type() != rdx.Mapping {
		return op, errors.Wrapf(crdtop_errors.ErrBadOperation, "not an object: %s", rec)
	}
	node, ok := rec.Get(KeyNode)
	if !ok {
		return op, errors.Wrap(crdtop_errors.ErrBadOperation, "no node id")
	}
	if op.Node, err = IdFromValue(node); err != nil {
		return op, err
	}
	ts, ok := rec.Get(KeyTimestamp)
	if !ok {
		return op, errors.Wrap(crdtop_errors.ErrBadOperation, "no timestamp")
	}
	if op.Timestamp, err = hlc.FromValue(ts); err != nil {
		return op, errors.Wrapf(err, "%s", ts)
	}
	family, err := DetectFamily(rec)
	if err != nil {
		return op, err
	}
	switch family {
	case FamilyShared:
		op.Typ, err = parseShared(rec)
	case FamilyRelation:
		op.Typ, err = parseRelation(rec)
	case FamilyOwned:
		op.Typ, err = parseOwned(rec)
	}
	if err != nil {
		op.Typ = nil
	}
	return op, err
}

// DetectFamily picks the family of a record. A tagged record must carry
// exactly its family's keys. An untagged record is matched against each
// family's key set in priority order; it must match exactly one.
func DetectFamily(rec rdx.Value) (Family, error) {
	var keys []string
	var tag rdx.Value
	tagged := false
	for _, k := range rec.Keys() {
		switch k {
		case KeyNode, KeyTimestamp:
		case KeyFamily:
			tag, _ = rec.Get(k)
			tagged = true
		default:
			keys = append(keys, k)
		}
	}
	if tagged {
		name, _ := tag.Text()
		family := Family(name)
		want, known := familyKeys[family]
		if !known {
			return "", errors.Wrapf(crdtop_errors.ErrUnknownFamily, "tag %s", tag)
		}
		if !slices.Equal(want, keys) {
			return "", errors.Wrapf(crdtop_errors.ErrFamilyMismatch,
				"%s wants {%s}, got {%s}", family, strings.Join(want, ","), strings.Join(keys, ","))
		}
		return family, nil
	}
	var matched []Family
	for _, family := range familyOrder {
		if slices.Equal(familyKeys[family], keys) {
			matched = append(matched, family)
		}
	}
	switch len(matched) {
	case 0:
		return "", errors.Wrapf(crdtop_errors.ErrUnknownFamily, "keys {%s}", strings.Join(keys, ","))
	case 1:
		return matched[0], nil
	default:
		return "", errors.Wrapf(crdtop_errors.ErrAmbiguousFamily, "keys {%s} match %v", strings.Join(keys, ","), matched)
	}
}
