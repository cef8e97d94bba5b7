package crdtop_test

import (
	"math"
	"slices"
	"testing"

	"github.com/drpcorg/crdtop"
	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/hlc"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyKeys_Distinct(t *testing.T) {
	families := crdtop.Families()
	require.Len(t, families, 3)
	for i, a := range families {
		keys := crdtop.FamilyKeys(a)
		assert.True(t, slices.IsSorted(keys))
		assert.NotContains(t, keys, crdtop.KeyNode)
		assert.NotContains(t, keys, crdtop.KeyTimestamp)
		assert.NotContains(t, keys, crdtop.KeyFamily)
		for _, b := range families[i+1:] {
			assert.NotEqual(t, keys, crdtop.FamilyKeys(b), "%s and %s", a, b)
		}
	}
}

func TestDecode_LegacyUntagged(t *testing.T) {
	cases := map[string]struct {
		family crdtop.Family
		tagged string
	}{
		`{"n":"AQ==","t":[1700000000000000000,3],"model":"note","record_id":"n1","data":{"u":{"field":"title","value":"hi"}}}`: {
			family: crdtop.FamilyShared,
			tagged: `{"data":{"u":{"field":"title","value":"hi"}},"f":"shared","model":"note","n":"AQ==","record_id":"n1","t":[1700000000000000000,3]}`,
		},
		`{"n":"AQ==","t":[7,0],"relation":"tag_on_note","relation_item":"dA==","relation_group":"bg==","data":"c"}`: {
			family: crdtop.FamilyRelation,
			tagged: `{"data":"c","f":"relation","n":"AQ==","relation":"tag_on_note","relation_group":"bg==","relation_item":"dA==","t":[7,0]}`,
		},
		`{"n":"AQ==","t":[7,1],"model":"setting","data":[{"id":"theme","data":{"c":{"value":"dark"}}},{"id":1,"data":"d"}]}`: {
			family: crdtop.FamilyOwned,
			tagged: `{"data":[{"data":{"c":{"value":"dark"}},"id":"theme"},{"data":"d","id":1}],"f":"owned","model":"setting","n":"AQ==","t":[7,1]}`,
		},
	}
	for in, want := range cases {
		op, err := crdtop.Decode([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want.family, op.Typ.Family())
		assert.Equal(t, crdtop.Id{1}, op.Node)
		out, err := crdtop.Encode(op)
		require.NoError(t, err)
		assert.Equal(t, want.tagged, string(out))
	}
}

func TestDecode_Owned(t *testing.T) {
	op, err := crdtop.Decode([]byte(`{"n":"AQ==","t":[7,1],"f":"owned","model":"setting",` +
		`"data":[{"id":"theme","data":{"u":{"value":"dark"}}},{"id":[1,2],"data":"d"}]}`))
	require.NoError(t, err)
	owned := op.Typ.(crdtop.OwnedOperation)
	require.Len(t, owned.Items, 2)
	assert.Equal(t, crdtop.Update, owned.Items[0].Data.Kind)
	v := owned.Items[0].Data.Fields["value"]
	s, _ := v.Text()
	assert.Equal(t, "dark", s)
	assert.Equal(t, crdtop.Delete, owned.Items[1].Data.Kind)
	assert.Equal(t, rdx.Linear, owned.Items[1].ID.Type())
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]error{
		``:         crdtop_errors.ErrBadOperation,
		`{"n":`:    crdtop_errors.ErrBadOperation,
		`[1,2]`:    crdtop_errors.ErrBadOperation,
		`"shared"`: crdtop_errors.ErrBadOperation,
		`{"t":[1,0],"model":"m","data":[]}`:             crdtop_errors.ErrBadOperation,
		`{"n":"AQ==","model":"m","data":[]}`:            crdtop_errors.ErrBadOperation,
		`{"n":7,"t":[1,0],"model":"m","data":[]}`:       crdtop_errors.ErrBadId,
		`{"n":"!!!","t":[1,0],"model":"m","data":[]}`:   crdtop_errors.ErrBadId,
		`{"n":"AQ==","t":"1.0","model":"m","data":[]}`:  crdtop_errors.ErrBadTimestamp,
		`{"n":"AQ==","t":[1],"model":"m","data":[]}`:    crdtop_errors.ErrBadTimestamp,
		`{"n":"AQ==","t":[-1,0],"model":"m","data":[]}`: crdtop_errors.ErrBadTimestamp,
		// key sets
		`{"n":"AQ==","t":[1,0]}`:                                                 crdtop_errors.ErrUnknownFamily,
		`{"n":"AQ==","t":[1,0],"model":"m"}`:                                     crdtop_errors.ErrUnknownFamily,
		`{"n":"AQ==","t":[1,0],"model":"m","data":[],"extra":1}`:                 crdtop_errors.ErrUnknownFamily,
		`{"n":"AQ==","t":[1,0],"f":"lww","model":"m","data":[]}`:                 crdtop_errors.ErrUnknownFamily,
		`{"n":"AQ==","t":[1,0],"f":"shared","model":"m","data":[]}`:              crdtop_errors.ErrFamilyMismatch,
		`{"n":"AQ==","t":[1,0],"f":"owned","model":"m","record_id":1,"data":"d"}`: crdtop_errors.ErrFamilyMismatch,
		// payloads
		`{"n":"AQ==","t":[1,0],"model":"m","data":{}}`:                                                crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"model":5,"data":[]}`:                                                  crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"model":"m","data":[{"id":1}]}`:                                        crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"model":"m","data":[{"id":1,"data":"c"}]}`:                             crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"model":"m","record_id":1,"data":"x"}`:                                 crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"model":"m","record_id":1,"data":"c"}`:                                 crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"model":"m","record_id":1,"data":{"c":[]}}`:                            crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"model":"m","record_id":1,"data":{"u":{"field":"a"}}}`:                 crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"model":"m","record_id":1,"data":{"d":{}}}`:                            crdtop_errors.ErrBadPayload,
		`{"n":"AQ==","t":[1,0],"relation":"r","relation_item":"AQ==","relation_group":1,"data":"c"}`:  crdtop_errors.ErrBadId,
		`{"n":"AQ==","t":[1,0],"relation":"r","relation_item":"AQ==","relation_group":"AQ==","data":{"c":{}}}`: crdtop_errors.ErrBadPayload,
	}
	for in, want := range cases {
		op, err := crdtop.Decode([]byte(in))
		assert.ErrorIs(t, err, want, in)
		assert.Nil(t, op.Typ, in)
	}
}

func TestDetectFamily(t *testing.T) {
	rec := crdtop.NewOperation(nodeA, hlc.New(1, 0), crdtop.Owned("m", nil)).RdxValue()
	family, err := crdtop.DetectFamily(rec)
	require.NoError(t, err)
	assert.Equal(t, crdtop.FamilyOwned, family)
	assert.True(t, rec.Has(crdtop.KeyFamily))
}

func TestEncode_NoType(t *testing.T) {
	op := crdtop.CRDTOperation{Node: nodeA, Timestamp: hlc.New(1, 0)}
	_, err := crdtop.Encode(op)
	assert.ErrorIs(t, err, crdtop_errors.ErrBadOperation)
	assert.Panics(t, func() { op.RdxValue() })
	assert.Equal(t, "0a@1.0 none", op.String())
}

func TestEncode_TimestampRange(t *testing.T) {
	edge := crdtop.NewOperation(nodeA, hlc.New(math.MaxInt64, 7), crdtop.Owned("m", nil))
	data, err := crdtop.Encode(edge)
	require.NoError(t, err)
	back, err := crdtop.Decode(data)
	require.NoError(t, err)
	assert.True(t, edge.Equal(back))

	over := crdtop.NewOperation(nodeA, hlc.New(math.MaxInt64+1, 0), crdtop.Owned("m", nil))
	_, err = crdtop.Encode(over)
	assert.ErrorIs(t, err, crdtop_errors.ErrBadTimestamp)
	_, err = crdtop.EncodeUntagged(over)
	assert.ErrorIs(t, err, crdtop_errors.ErrBadTimestamp)
}

func TestDecode_Value(t *testing.T) {
	rec, err := rdx.ParseJSON([]byte(`{"n":"AQ==","t":[3,0],"f":"relation","relation":"r",` +
		`"relation_item":"AQ==","relation_group":"Ag==","data":{"u":{"field":"pos","value":2}}}`))
	require.NoError(t, err)
	op, err := crdtop.DecodeValue(rec)
	require.NoError(t, err)
	rel := op.Typ.(crdtop.RelationOperation)
	assert.Equal(t, crdtop.Update, rel.Data.Kind)
	assert.Equal(t, "pos", rel.Data.Field)
	n, ok := rel.Data.Value.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, crdtop.Id{2}, rel.RelationGroup)
}
