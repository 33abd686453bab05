package internal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderedMap(t *testing.T) {
	m := NewOrderedMap[string, int]()
	if m == nil {
		t.Fatal("NewOrderedMap() returned nil")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestOrderedMap_GetSet(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Set("a", 1)

	got, ok := m.Get("a")
	if !ok || got != 1 {
		t.Errorf("Get(a) = %d, %v, want 1, true", got, ok)
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("Get() returned true for missing key")
	}
}

func TestOrderedMap_InsertionOrder(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Set("c", 3)
	m.Set("a", 1)
	m.Set("b", 2)
	// overwrite keeps position
	m.Set("c", 30)

	assert.Equal(t, []string{"c", "a", "b"}, m.Keys())
	v, _ := m.Get("c")
	assert.Equal(t, 30, v)
}

func TestOrderedMap_Delete(t *testing.T) {
	m := NewOrderedMap[string, int]()
	for i := 0; i < 5; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}

	m.Delete("k2")
	m.Delete("missing")

	assert.Equal(t, 4, m.Len())
	assert.False(t, m.Has("k2"))
	assert.Equal(t, []string{"k0", "k1", "k3", "k4"}, m.Keys())

	// re-adding a deleted key appends it
	m.Set("k2", 2)
	assert.Equal(t, []string{"k0", "k1", "k3", "k4", "k2"}, m.Keys())
}

func TestOrderedMap_Range(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)
	m.Set("z", 3)

	var seen []string
	m.Range(func(k string, v int) bool {
		seen = append(seen, k)
		return k != "y"
	})
	assert.Equal(t, []string{"x", "y"}, seen)
}
