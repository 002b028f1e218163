package utils

// OrderedMap is a map that remembers the order in which keys were first
// inserted. Iteration through Keys follows that order.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{values: make(map[K]V)}
}

// Set stores value under key. A new key is appended to the key order;
// an existing key keeps its position.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

// Accumulate is the insert-or-accumulate operation: if key is absent it is
// inserted with amount, otherwise the stored value becomes
// combine(stored, amount).
func Accumulate[K comparable, V any](m *OrderedMap[K, V], key K, amount V, combine func(V, V) V) {
	if cur, ok := m.values[key]; ok {
		m.values[key] = combine(cur, amount)
		return
	}
	m.Set(key, amount)
}

// AppendTo returns combine for slice values: the new elements are appended
// after the existing ones.
func AppendTo[T any](cur, add []T) []T {
	return append(cur, add...)
}
