package crdtop

import (
	"bytes"
	"encoding/hex"

	"github.com/cristalhq/base64"
	"github.com/drpcorg/crdtop/crdtop_errors"
	"github.com/drpcorg/crdtop/rdx"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Id is an opaque identifier of a node or a record. Ids compare by
// exact byte equality; node ids must be globally unique, record ids
// unique within their model or relation.
type Id []byte

// NewId mints a random 16-byte id.
func NewId() Id {
	u := uuid.New()
	return Id(u[:])
}

func IdFromUUID(u uuid.UUID) Id {
	return Id(bytes.Clone(u[:]))
}

func (id Id) Equal(b Id) bool {
	return bytes.Equal(id, b)
}

func (id Id) Compare(b Id) int {
	return bytes.Compare(id, b)
}

func (id Id) Clone() Id {
	if id == nil {
		return nil
	}
	return bytes.Clone(id)
}

// String is lowercase hex, handy in logs.
func (id Id) String() string {
	return hex.EncodeToString(id)
}

// Base64 is the wire text form.
func (id Id) Base64() string {
	return base64.StdEncoding.EncodeToString(id)
}

func IdFromBase64(s string) (Id, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(crdtop_errors.ErrBadId, "%q: %v", s, err)
	}
	return Id(raw), nil
}

func (id Id) RdxValue() rdx.Value {
	return rdx.Str(id.Base64())
}

func IdFromValue(v rdx.Value) (Id, error) {
	s, ok := v.Text()
	if !ok {
		return nil, errors.Wrapf(crdtop_errors.ErrBadId, "not a string: %s", v)
	}
	return IdFromBase64(s)
}

func (id Id) MarshalJSON() ([]byte, error) {
	return id.RdxValue().MarshalJSON()
}

func (id *Id) UnmarshalJSON(data []byte) error {
	v, err := rdx.ParseJSON(data)
	if err != nil {
		return errors.Wrap(crdtop_errors.ErrBadId, err.Error())
	}
	*id, err = IdFromValue(v)
	return err
}
