package fold

// ResolveFork implements §4.4's fork policy: when two receipts share the
// same previous event id, the verifier deterministically prefers the one
// whose id is lower in byte-lexical order. This is the only place the core
// picks a side of a fork; both receipts may still be retained by collaborator
// storage, but only the winner is folded.
func ResolveFork(a, b Receipt) Receipt {
	if b.ID.Less(a.ID) {
		return b
	}
	return a
}
