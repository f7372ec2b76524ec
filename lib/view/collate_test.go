package view

import (
	"sort"
	"testing"
)

func TestCompareOrder(t *testing.T) {
	// ascending collation order
	ordered := []interface{}{
		nil,
		false,
		true,
		float64(-1),
		float64(0),
		2.5,
		float64(10),
		"",
		"A",
		"B",
		"a",
		"b",
		"ba",
		[]interface{}{},
		[]interface{}{float64(1)},
		[]interface{}{float64(1), "a"},
		[]interface{}{"a"},
		map[string]interface{}{},
		map[string]interface{}{"a": float64(1)},
		map[string]interface{}{"a": float64(2)},
		map[string]interface{}{"b": float64(1)},
	}

	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j])
			want := cmpInt(i, j)
			if got != want {
				t.Errorf("Compare(%v, %v) = %d, expected %d", ordered[i], ordered[j], got, want)
			}
		}
	}
}

func TestCompareSortIsStable(t *testing.T) {
	values := []interface{}{"b", float64(3), nil, "a", true, float64(1)}
	sort.SliceStable(values, func(i, j int) bool { return Compare(values[i], values[j]) < 0 })
	want := []interface{}{nil, true, float64(1), float64(3), "a", "b"}
	for i := range want {
		if !Equal(values[i], want[i]) {
			t.Fatalf("Unexpected order %v", values)
		}
	}
}

func TestEqualMixedNumbers(t *testing.T) {
	if !Equal(float64(1), 1) {
		t.Errorf("Expected float64(1) and int(1) to be equal")
	}
	if Equal("1", float64(1)) {
		t.Errorf("Expected string and number to differ")
	}
}
