package residue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"epidemicsim/internal/model"
	"epidemicsim/internal/residue"
)

func ts(c uint64, r string) model.Timestamp { return model.Timestamp{Counter: c, ReplicaID: r} }

func TestEmptyOrSingleStoreHasNoResidue(t *testing.T) {
	assert.Equal(t, 0, residue.Count(nil))
	assert.Equal(t, 0, residue.Count([]map[string]model.Record{{"k": {Value: 1.0, Ts: ts(1, "R0")}}}))
}

func TestIdenticalStoresHaveZeroResidue(t *testing.T) {
	a := map[string]model.Record{"k": {Value: 1.0, Ts: ts(1, "R0")}}
	b := map[string]model.Record{"k": {Value: 1.0, Ts: ts(1, "R0")}}
	assert.Equal(t, 0, residue.Count([]map[string]model.Record{a, b}))
}

func TestDivergentValueCountsAsOne(t *testing.T) {
	a := map[string]model.Record{"k": {Value: 1.0, Ts: ts(1, "R0")}}
	b := map[string]model.Record{"k": {Value: 2.0, Ts: ts(2, "R1")}}
	assert.Equal(t, 1, residue.Count([]map[string]model.Record{a, b}))
}

func TestAbsentKeyIsDistinctFromPresent(t *testing.T) {
	a := map[string]model.Record{"k": {Value: 1.0, Ts: ts(1, "R0")}}
	b := map[string]model.Record{}
	assert.Equal(t, 1, residue.Count([]map[string]model.Record{a, b}))
}

func TestResidueBoundedByDistinctKeysTouched(t *testing.T) {
	a := map[string]model.Record{
		"k1": {Value: 1.0, Ts: ts(1, "R0")},
		"k2": {Value: 1.0, Ts: ts(1, "R0")},
	}
	b := map[string]model.Record{
		"k1": {Value: 9.0, Ts: ts(9, "R1")},
		"k2": {Value: 1.0, Ts: ts(1, "R0")},
	}
	r := residue.Count([]map[string]model.Record{a, b})
	assert.Equal(t, 1, r)
	assert.LessOrEqual(t, r, 2)
}

func TestThreeWayDivergenceDetected(t *testing.T) {
	a := map[string]model.Record{"k": {Value: 1.0, Ts: ts(1, "R0")}}
	b := map[string]model.Record{"k": {Value: 1.0, Ts: ts(1, "R0")}}
	c := map[string]model.Record{"k": {Value: 2.0, Ts: ts(2, "R2")}}
	assert.Equal(t, 1, residue.Count([]map[string]model.Record{a, b, c}))
}
