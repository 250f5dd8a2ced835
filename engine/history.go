package engine

// A historyStack retains snapshots in last-in-first-out order for step-back.
// The stack owns its snapshots exclusively; restoring one removes it.
type historyStack struct {
	snapshots []Snapshot
}

func (h *historyStack) Push(s Snapshot) {
	h.snapshots = append(h.snapshots, s)
}

func (h *historyStack) Pop() (Snapshot, bool) {
	if len(h.snapshots) == 0 {
		return Snapshot{}, false
	}

	s := h.snapshots[len(h.snapshots)-1]
	h.snapshots = h.snapshots[:len(h.snapshots)-1]

	return s, true
}

func (h *historyStack) Len() int {
	return len(h.snapshots)
}

func (h *historyStack) Clear() {
	h.snapshots = nil
}
