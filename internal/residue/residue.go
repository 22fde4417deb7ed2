// Package residue implements the cross-replica divergence metric.
package residue

import "epidemicsim/internal/model"

// tuple is the per-replica comparison key for one store key. "Key
// absent at this replica" is the tuple with present=false, distinct
// from any real (deleted, value, counter, replica_id) tuple because
// every real one has present=true.
type tuple struct {
	present bool
	deleted bool
	value   interface{}
	counter uint64
	tsOwner string
}

func tupleFor(rec model.Record, ok bool) tuple {
	if !ok {
		return tuple{present: false}
	}
	return tuple{present: true, deleted: rec.Deleted, value: rec.Value, counter: rec.Ts.Counter, tsOwner: rec.Ts.ReplicaID}
}

// Count returns how many keys, across the union of all given stores,
// have a record that differs on at least one replica versus another.
// O(K*R) per call.
func Count(stores []map[string]model.Record) int {
	if len(stores) < 2 {
		return 0
	}

	keys := make(map[string]struct{})
	for _, st := range stores {
		for k := range st {
			keys[k] = struct{}{}
		}
	}

	divergent := 0
	for k := range keys {
		var baseline tuple
		same := true
		for i, st := range stores {
			rec, ok := st[k]
			t := tupleFor(rec, ok)
			if i == 0 {
				baseline = t
				continue
			}
			if t != baseline {
				same = false
				break
			}
		}
		if !same {
			divergent++
		}
	}
	return divergent
}
