package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/drpcorg/crdtop"
	"github.com/drpcorg/crdtop/hlc"
	"github.com/drpcorg/crdtop/rdx"
)

const Help = `shared MODEL ID create {FIELDS}
shared MODEL ID update FIELD VALUE
shared MODEL ID delete
relation NAME ITEM GROUP create|delete
relation NAME ITEM GROUP update FIELD VALUE
owned MODEL [{"id":ID,"data":{"c":{FIELDS}}},...]
log [PHYSICAL.LOGICAL]
export FILE
import FILE
decode {OPERATION}
exit
`

var (
	HelpShared   = errors.New("shared MODEL ID create|update|delete ...")
	HelpRelation = errors.New("relation NAME ITEM GROUP create|update|delete ...")
	HelpOwned    = errors.New("owned MODEL [ITEMS]")
	HelpFile     = errors.New("export|import FILE")
	HelpDecode   = errors.New("decode {OPERATION}")
)

func parseJSONArg(arg string) (rdx.Value, error) {
	return rdx.ParseJSON([]byte(arg))
}

func (repl *REPL) CommandShared(ctx context.Context, args string) (op crdtop.CRDTOperation, err error) {
	model, args := cutWord(args)
	id, args := cutWord(args)
	kind, args := cutWord(args)
	if model == "" || id == "" {
		return op, HelpShared
	}
	recordID, err := parseJSONArg(id)
	if err != nil {
		return op, err
	}
	var data crdtop.SharedOperationData
	switch kind {
	case "create":
		fields := map[string]rdx.Value{}
		if args != "" {
			v, err := parseJSONArg(args)
			if err != nil {
				return op, err
			}
			if v.Type() != rdx.Mapping {
				return op, HelpShared
			}
			fields = v.Fields()
		}
		data = crdtop.SharedCreate(fields)
	case "update":
		field, value, err := fieldValue(args)
		if err != nil {
			return op, err
		}
		data = crdtop.SharedUpdate(field, value)
	case "delete":
		data = crdtop.SharedDelete()
	default:
		return op, HelpShared
	}
	return repl.Replica.Commit(ctx, crdtop.Shared(model, recordID, data))
}

func (repl *REPL) CommandRelation(ctx context.Context, args string) (op crdtop.CRDTOperation, err error) {
	name, args := cutWord(args)
	item, args := cutWord(args)
	group, args := cutWord(args)
	kind, args := cutWord(args)
	if name == "" || item == "" || group == "" {
		return op, HelpRelation
	}
	var data crdtop.RelationOperationData
	switch kind {
	case "create":
		data = crdtop.RelationCreate()
	case "update":
		field, value, err := fieldValue(args)
		if err != nil {
			return op, err
		}
		data = crdtop.RelationUpdate(field, value)
	case "delete":
		data = crdtop.RelationDelete()
	default:
		return op, HelpRelation
	}
	return repl.Replica.Commit(ctx, crdtop.Relation(name, crdtop.Id(item), crdtop.Id(group), data))
}

func (repl *REPL) CommandOwned(ctx context.Context, args string) (op crdtop.CRDTOperation, err error) {
	model, args := cutWord(args)
	if model == "" {
		return op, HelpOwned
	}
	var items []crdtop.OwnedOperationItem
	if args != "" {
		v, err := parseJSONArg(args)
		if err != nil {
			return op, err
		}
		if items, err = crdtop.OwnedItemsFromValue(v); err != nil {
			return op, err
		}
	}
	return repl.Replica.Commit(ctx, crdtop.Owned(model, items))
}

// fieldValue reads "FIELD VALUE", VALUE being JSON.
func fieldValue(args string) (field string, value rdx.Value, err error) {
	field, args = cutWord(args)
	if field == "" || args == "" {
		return "", value, errors.New("FIELD VALUE expected")
	}
	value, err = parseJSONArg(args)
	return
}

func (repl *REPL) CommandLog(ctx context.Context, args string) (err error) {
	from := hlc.Zero
	if args != "" {
		if from, err = hlc.Parse(args); err != nil {
			return
		}
	}
	return repl.Log.ScanFrom(ctx, from, func(op crdtop.CRDTOperation) error {
		data, err := crdtop.Encode(op)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(repl.out, "%s\n", data)
		return err
	})
}

func (repl *REPL) CommandExport(ctx context.Context, args string) error {
	file, _ := cutWord(args)
	if file == "" {
		return HelpFile
	}
	var ops []crdtop.CRDTOperation
	err := repl.Log.Scan(ctx, func(op crdtop.CRDTOperation) error {
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return err
	}
	batch, err := crdtop.EncodeBatch(ops)
	if err != nil {
		return err
	}
	if err = os.WriteFile(file, batch, 0o644); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(repl.out, "%d operations exported to %s\n", len(ops), file)
	return nil
}

// CommandImport receives every operation of a batch file, the way
// operations from another node are received.
func (repl *REPL) CommandImport(ctx context.Context, args string) error {
	file, _ := cutWord(args)
	if file == "" {
		return HelpFile
	}
	batch, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	ops, err := crdtop.DecodeBatch(batch)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err = repl.Replica.Receive(ctx, op); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(repl.out, "%d operations imported from %s\n", len(ops), file)
	return nil
}

func (repl *REPL) CommandDecode(args string) error {
	if args == "" {
		return HelpDecode
	}
	op, err := crdtop.Decode([]byte(args))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(repl.out, "%s %s\n", op.String(), op.Typ.RdxValue().String())
	return err
}
