package crossfilter

import "cmp"

// EnsureBins completes a group table with a zero entry for every expected key it lacks.
//
// Missing entries are appended after the existing ones, in the order of expected keys.
// The input table is left untouched; nothing is sorted or deduplicated.
func EnsureBins[K cmp.Ordered, V any](table []Entry[K, V], zero func() V, expected []K) []Entry[K, V] {
	found := make(map[K]struct{}, len(table))
	for _, entry := range table {
		found[entry.Key] = struct{}{}
	}

	result := make([]Entry[K, V], len(table), len(table)+len(expected))
	copy(result, table)

	for _, key := range expected {
		if _, ok := found[key]; ok {
			continue
		}

		result = append(result, Entry[K, V]{Key: key, Value: zero()})
	}

	return result
}
