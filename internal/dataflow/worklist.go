package dataflow

import "github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cfg"

// worklist is a FIFO of blocks that never holds the same block twice.
type worklist struct {
	queue   []cfg.BlockID
	inQueue map[cfg.BlockID]bool
}

func newWorklist(seed []cfg.BlockID) *worklist {
	w := &worklist{inQueue: make(map[cfg.BlockID]bool, len(seed))}
	for _, id := range seed {
		w.push(id)
	}
	return w
}

func (w *worklist) push(id cfg.BlockID) {
	if !w.inQueue[id] {
		w.queue = append(w.queue, id)
		w.inQueue[id] = true
	}
}

func (w *worklist) pop() cfg.BlockID {
	id := w.queue[0]
	w.queue = w.queue[1:]
	w.inQueue[id] = false
	return id
}

func (w *worklist) empty() bool { return len(w.queue) == 0 }
