// Package model defines the immutable data types shared by every
// component of the simulator: timestamps, stored records, and the
// update operations replicas exchange.
package model

import (
	"encoding/json"
	"fmt"
)

// OpKind discriminates the two update operations a replica can apply.
type OpKind string

const (
	OpSet OpKind = "SET"
	OpDel OpKind = "DEL"
)

// Timestamp totally orders updates: counters first, replica id breaks ties.
type Timestamp struct {
	Counter   uint64
	ReplicaID string
}

// Less reports whether t sorts strictly before other.
func (t Timestamp) Less(other Timestamp) bool {
	if t.Counter != other.Counter {
		return t.Counter < other.Counter
	}
	return t.ReplicaID < other.ReplicaID
}

// Greater reports whether t sorts strictly after other.
func (t Timestamp) Greater(other Timestamp) bool {
	return other.Less(t)
}

// Equal reports whether t and other denote the same point in the total order.
func (t Timestamp) Equal(other Timestamp) bool {
	return t.Counter == other.Counter && t.ReplicaID == other.ReplicaID
}

func (t Timestamp) String() string {
	return fmt.Sprintf("(%d,%s)", t.Counter, t.ReplicaID)
}

// ToJSON renders the timestamp as the two-element sequence used for
// wire and file serialization.
func (t Timestamp) ToJSON() []interface{} {
	return []interface{}{t.Counter, t.ReplicaID}
}

// TimestampFromJSON parses the two-element sequence written by ToJSON.
func TimestampFromJSON(x []interface{}) (Timestamp, error) {
	if len(x) != 2 {
		return Timestamp{}, fmt.Errorf("model: timestamp json must have 2 elements, got %d", len(x))
	}
	counter, err := toUint64(x[0])
	if err != nil {
		return Timestamp{}, fmt.Errorf("model: timestamp counter: %w", err)
	}
	replicaID, ok := x[1].(string)
	if !ok {
		return Timestamp{}, fmt.Errorf("model: timestamp replica id must be a string")
	}
	return Timestamp{Counter: counter, ReplicaID: replicaID}, nil
}

func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case float64:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("model: cannot convert %T to counter", v)
	}
}

// MarshalJSON renders the timestamp as a two-element JSON array.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{t.Counter, t.ReplicaID})
}

// UnmarshalJSON parses the two-element JSON array written by MarshalJSON.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("model: timestamp: %w", err)
	}
	if err := json.Unmarshal(raw[0], &t.Counter); err != nil {
		return fmt.Errorf("model: timestamp counter: %w", err)
	}
	if err := json.Unmarshal(raw[1], &t.ReplicaID); err != nil {
		return fmt.Errorf("model: timestamp replica id: %w", err)
	}
	return nil
}

// Record is the stored value for a key: either a live value or a
// tombstone, always carrying the timestamp of the write that produced it.
type Record struct {
	Value   interface{} `json:"value"`
	Deleted bool        `json:"deleted"`
	Ts      Timestamp   `json:"ts"`
}

// ToJSON renders the record as a structured {value, deleted, ts} object.
func (r Record) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"value":   r.Value,
		"deleted": r.Deleted,
		"ts":      r.Ts.ToJSON(),
	}
}

// RecordFromJSON parses the {value, deleted, ts} shape written by ToJSON.
func RecordFromJSON(x map[string]interface{}) (Record, error) {
	tsRaw, ok := x["ts"].([]interface{})
	if !ok {
		return Record{}, fmt.Errorf("model: record missing ts field")
	}
	ts, err := TimestampFromJSON(tsRaw)
	if err != nil {
		return Record{}, err
	}
	deleted, _ := x["deleted"].(bool)
	return Record{
		Value:   x["value"],
		Deleted: deleted,
		Ts:      ts,
	}, nil
}

// Operation is an immutable update request carrying the origin's
// intended timestamp. OpID is unique across the whole simulation.
type Operation struct {
	OpID   string      `json:"op_id"`
	Op     OpKind      `json:"op"`
	Key    string      `json:"key"`
	Value  interface{} `json:"value"` // unset for DEL
	Ts     Timestamp   `json:"ts"`
	Origin string      `json:"origin"`
}

// ToJSON renders the operation as a structured record.
func (op Operation) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"op_id":  op.OpID,
		"op":     string(op.Op),
		"key":    op.Key,
		"value":  op.Value,
		"ts":     op.Ts.ToJSON(),
		"origin": op.Origin,
	}
}

// OperationFromJSON parses the structured record written by ToJSON.
func OperationFromJSON(x map[string]interface{}) (Operation, error) {
	tsRaw, ok := x["ts"].([]interface{})
	if !ok {
		return Operation{}, fmt.Errorf("model: operation missing ts field")
	}
	ts, err := TimestampFromJSON(tsRaw)
	if err != nil {
		return Operation{}, err
	}
	opID, _ := x["op_id"].(string)
	kindRaw, _ := x["op"].(string)
	key, _ := x["key"].(string)
	origin, _ := x["origin"].(string)
	if opID == "" || key == "" || origin == "" {
		return Operation{}, fmt.Errorf("model: operation missing required string field")
	}
	kind := OpKind(kindRaw)
	if kind != OpSet && kind != OpDel {
		return Operation{}, fmt.Errorf("model: unknown operation kind %q", kindRaw)
	}
	return Operation{
		OpID:   opID,
		Op:     kind,
		Key:    key,
		Value:  x["value"],
		Ts:     ts,
		Origin: origin,
	}, nil
}
