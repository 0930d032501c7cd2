package timeline

import "sort"

// MergedEntry is a Message tagged with the user who wrote it.
type MergedEntry struct {
	Message
	Owner string `json:"owner"`
}

// Merge tags the messages of the local timeline with self and those of every
// followed timeline with their owner, and returns them all in ascending
// timestamp order. Entries with equal timestamps are ordered by owner name,
// and entries of the same owner keep their original relative order.
func Merge(self string, local Timeline, followed map[string]Timeline) []MergedEntry {
	total := len(local)
	for _, tl := range followed {
		total += len(tl)
	}

	res := make([]MergedEntry, 0, total)

	for _, m := range local {
		res = append(res, MergedEntry{Message: m, Owner: self})
	}
	for owner, tl := range followed {
		for _, m := range tl {
			res = append(res, MergedEntry{Message: m, Owner: owner})
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Timestamp != res[j].Timestamp {
			return res[i].Timestamp < res[j].Timestamp
		}
		return res[i].Owner < res[j].Owner
	})

	return res
}
