package crudguard

import (
	"maps"

	"github.com/goliatone/go-crud"
	"github.com/inchronicle/go-stories/pkg/types"
)

// DefaultPolicyMap gives every CRUD verb one of two policy actions: show and
// list take the read action, everything that mutates (including the batch
// variants) takes the write action.
func DefaultPolicyMap(readAction, writeAction types.PolicyAction) map[crud.CrudOperation]types.PolicyAction {
	reads := []crud.CrudOperation{crud.OpRead, crud.OpList}
	writes := []crud.CrudOperation{
		crud.OpCreate, crud.OpCreateBatch,
		crud.OpUpdate, crud.OpUpdateBatch,
		crud.OpDelete, crud.OpDeleteBatch,
	}

	out := make(map[crud.CrudOperation]types.PolicyAction, len(reads)+len(writes))
	for _, op := range reads {
		out[op] = readAction
	}
	for _, op := range writes {
		out[op] = writeAction
	}
	return out
}

func clonePolicyMap(in map[crud.CrudOperation]types.PolicyAction) map[crud.CrudOperation]types.PolicyAction {
	if len(in) == 0 {
		return nil
	}
	out := make(map[crud.CrudOperation]types.PolicyAction, len(in))
	maps.Copy(out, in)
	return out
}
