package repository

// upsertByKey inserts or replaces items by primary key. Existing entries keep their
// position, new keys are appended in input order, and a key repeated in items keeps
// only its last occurrence.
func upsertByKey[T any](current, items []T, key func(T) string) []T {
	result := make([]T, len(current), len(current)+len(items))
	copy(result, current)
	index := make(map[string]int, len(result))
	for i, item := range result {
		index[key(item)] = i
	}
	for _, item := range items {
		k := key(item)
		if i, ok := index[k]; ok {
			result[i] = item
			continue
		}
		index[k] = len(result)
		result = append(result, item)
	}
	return result
}

// removeByKey filters out every entry with the given key.
func removeByKey[T any](current []T, id string, key func(T) string) []T {
	result := make([]T, 0, len(current))
	for _, item := range current {
		if key(item) != id {
			result = append(result, item)
		}
	}
	return result
}

// mergeByKey returns primary followed by every entry of secondary whose key is absent
// from primary. Entries present in both come from primary.
func mergeByKey[T any](primary, secondary []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(primary))
	result := make([]T, 0, len(primary)+len(secondary))
	for _, item := range primary {
		seen[key(item)] = struct{}{}
		result = append(result, item)
	}
	for _, item := range secondary {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, item)
	}
	return result
}

func findByKey[T any](items []T, id string, key func(T) string) (int, bool) {
	for i, item := range items {
		if key(item) == id {
			return i, true
		}
	}
	return -1, false
}
