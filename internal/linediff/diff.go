// Package linediff reconciles a replacement set of line items against the set
// previously stored, in one pass over each input.
package linediff

// Result partitions the compared items. Added, Modified and Unchanged hold
// items from the new set; Deleted holds items from the old set so callers keep
// their storage identity and original quantities.
type Result[T any] struct {
	Added     []T
	Modified  []T
	Deleted   []T
	Unchanged []T
}

// KeyFunc returns the business identity of an item. ok=false drops the item
// from the comparison entirely.
type KeyFunc[T any, K comparable] func(item T) (key K, ok bool)

// EqualFunc compares two items over their comparison fields only.
type EqualFunc[T any] func(a, b T) bool

// Diff classifies newItems against oldItems by key. Order of either input is
// irrelevant. When a key repeats within oldItems the last occurrence wins;
// callers that need stricter input reject duplicates before diffing.
// Deleted items are returned in oldItems order.
func Diff[T any, K comparable](oldItems, newItems []T, key KeyFunc[T, K], equal EqualFunc[T]) Result[T] {
	var res Result[T]
	pending := make(map[K]T, len(oldItems))
	for _, item := range oldItems {
		k, ok := key(item)
		if !ok {
			continue
		}
		pending[k] = item
	}
	for _, item := range newItems {
		k, ok := key(item)
		if !ok {
			continue
		}
		prev, found := pending[k]
		if !found {
			res.Added = append(res.Added, item)
			continue
		}
		if equal(prev, item) {
			res.Unchanged = append(res.Unchanged, item)
		} else {
			res.Modified = append(res.Modified, item)
		}
		delete(pending, k)
	}
	for _, item := range oldItems {
		k, ok := key(item)
		if !ok {
			continue
		}
		if _, left := pending[k]; left {
			res.Deleted = append(res.Deleted, item)
			delete(pending, k)
		}
	}
	return res
}

// Empty reports whether the diff changes nothing.
func (r Result[T]) Empty() bool {
	return len(r.Added) == 0 && len(r.Modified) == 0 && len(r.Deleted) == 0
}
