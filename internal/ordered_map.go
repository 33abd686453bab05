package internal

import (
	"container/list"
)

type orderedEntry[K comparable, V any] struct {
	key   K
	value V
}

// OrderedMap is a map that iterates in insertion order. Delete is O(1).
// Re-setting an existing key keeps its original position.
type OrderedMap[K comparable, V any] struct {
	index map[K]*list.Element
	order *list.List
}

// NewOrderedMap creates an empty OrderedMap
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		index: make(map[K]*list.Element),
		order: list.New(),
	}
}

// Get retrieves the value stored for key
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	if el, ok := m.index[key]; ok {
		return el.Value.(*orderedEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Has reports whether key is present
func (m *OrderedMap[K, V]) Has(key K) bool {
	_, ok := m.index[key]
	return ok
}

// Set stores value under key
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if el, ok := m.index[key]; ok {
		el.Value.(*orderedEntry[K, V]).value = value
		return
	}
	m.index[key] = m.order.PushBack(&orderedEntry[K, V]{key: key, value: value})
}

// Delete removes key. Missing keys are a no-op.
func (m *OrderedMap[K, V]) Delete(key K) {
	if el, ok := m.index[key]; ok {
		m.order.Remove(el)
		delete(m.index, key)
	}
}

// Len returns the number of entries
func (m *OrderedMap[K, V]) Len() int {
	return len(m.index)
}

// Keys returns keys in insertion order
func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.index))
	for el := m.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*orderedEntry[K, V]).key)
	}
	return keys
}

// Range calls fn for each entry in insertion order until fn returns false
func (m *OrderedMap[K, V]) Range(fn func(key K, value V) bool) {
	for el := m.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*orderedEntry[K, V])
		if !fn(e.key, e.value) {
			return
		}
	}
}
