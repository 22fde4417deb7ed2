package model_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epidemicsim/internal/model"
)

func TestTimestampTotalOrder(t *testing.T) {
	a := model.Timestamp{Counter: 1, ReplicaID: "R0"}
	b := model.Timestamp{Counter: 1, ReplicaID: "R1"}
	c := model.Timestamp{Counter: 2, ReplicaID: "R0"}

	assert.True(t, a.Less(b), "same counter breaks ties by replica id")
	assert.True(t, a.Less(c), "lower counter sorts first regardless of replica id")
	assert.True(t, c.Greater(b))
	assert.True(t, a.Equal(model.Timestamp{Counter: 1, ReplicaID: "R0"}))
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	ts := model.Timestamp{Counter: 42, ReplicaID: "R7"}

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `[42,"R7"]`, string(data))

	var got model.Timestamp
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, got.Equal(ts))
}

func TestRecordJSONRoundTrip(t *testing.T) {
	rec := model.Record{Value: "v1", Deleted: false, Ts: model.Timestamp{Counter: 3, ReplicaID: "R2"}}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var got model.Record
	require.NoError(t, json.Unmarshal(data, &got))

	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOperationJSONRoundTrip(t *testing.T) {
	op := model.Operation{
		OpID:   "R0:1",
		Op:     model.OpSet,
		Key:    "k1",
		Value:  float64(9),
		Ts:     model.Timestamp{Counter: 1, ReplicaID: "R0"},
		Origin: "R0",
	}

	data, err := json.Marshal(op)
	require.NoError(t, err)

	var got model.Operation
	require.NoError(t, json.Unmarshal(data, &got))

	if diff := cmp.Diff(op, got); diff != "" {
		t.Fatalf("operation round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOperationFromJSONRejectsUnknownKind(t *testing.T) {
	_, err := model.OperationFromJSON(map[string]interface{}{
		"op_id":  "R0:1",
		"op":     "FROBNICATE",
		"key":    "k1",
		"ts":     []interface{}{float64(1), "R0"},
		"origin": "R0",
	})
	require.Error(t, err)
}
