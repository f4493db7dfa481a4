package room

// EpochWatcher detects resets from the resetVersion counter. The first
// observation only primes the baseline, so a freshly-subscribed client
// never treats room creation as a reset.
type EpochWatcher struct {
	baseline int64
	primed   bool
}

// Observe feeds a resetVersion value and reports whether a reset happened
// since the previous observation.
func (w *EpochWatcher) Observe(version int64) bool {
	if !w.primed {
		w.primed = true
		w.baseline = version
		return false
	}
	if version > w.baseline {
		w.baseline = version
		return true
	}
	return false
}
