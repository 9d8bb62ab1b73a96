package worker

import (
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// defaultDequeCapacity is the initial ring size when none is configured
const defaultDequeCapacity = 64

// ring is a power-of-two circular buffer indexed by absolute positions
type ring struct {
	mask  int64
	slots []atomic.Pointer[Task]
}

func newRing(size int64) *ring {
	return &ring{
		mask:  size - 1,
		slots: make([]atomic.Pointer[Task], size),
	}
}

func (r *ring) size() int64 {
	return r.mask + 1
}

func (r *ring) get(i int64) *Task {
	return r.slots[i&r.mask].Load()
}

func (r *ring) put(i int64, t *Task) {
	r.slots[i&r.mask].Store(t)
}

// grow copies positions [top, bottom) into a ring twice the size
func (r *ring) grow(top, bottom int64) *ring {
	next := newRing(r.size() << 1)
	for i := top; i < bottom; i++ {
		next.put(i, r.get(i))
	}
	return next
}

// Deque is a Chase-Lev work-stealing deque.
//
// The owner end (bottom) supports push and LIFO pop; the steal end (top)
// supports FIFO pop by any goroutine through a compare-and-swap on top.
// Owner-end operations are serialized by a mutex so that the pool may place
// work on a worker's deque from outside; thieves never take it.
//
// A retired ring is never written again, so a thief holding an old ring
// still reads the value that was current for its index.
type Deque struct {
	top    atomic.Int64
	_      cpu.CacheLinePad
	bottom atomic.Int64
	_      cpu.CacheLinePad
	buf    atomic.Pointer[ring]

	owner  sync.Mutex
	sealed bool
}

// NewDeque creates a deque with room for capacity tasks before it grows
func NewDeque(capacity int) *Deque {
	if capacity <= 0 {
		capacity = defaultDequeCapacity
	}
	size := int64(1)
	for size < int64(capacity) {
		size <<= 1
	}

	d := &Deque{}
	d.buf.Store(newRing(size))
	return d
}

// PushOwner adds t at the owner end. It returns false if the deque has been
// sealed by Drain.
func (d *Deque) PushOwner(t *Task) bool {
	d.owner.Lock()
	defer d.owner.Unlock()

	if d.sealed {
		return false
	}

	b := d.bottom.Load()
	top := d.top.Load()
	r := d.buf.Load()
	if b-top >= r.size() {
		r = r.grow(top, b)
		d.buf.Store(r)
	}
	r.put(b, t)
	d.bottom.Store(b + 1)
	return true
}

// PopOwner removes the most recently pushed task, or returns nil
func (d *Deque) PopOwner() *Task {
	d.owner.Lock()
	defer d.owner.Unlock()
	return d.pop()
}

// pop must be called with d.owner held
func (d *Deque) pop() *Task {
	b := d.bottom.Load() - 1
	r := d.buf.Load()
	d.bottom.Store(b)

	top := d.top.Load()
	if top > b {
		// empty
		d.bottom.Store(top)
		return nil
	}

	t := r.get(b)
	if top == b {
		// last element: race thieves for it through top
		if !d.top.CompareAndSwap(top, top+1) {
			t = nil
		}
		d.bottom.Store(top + 1)
	}
	return t
}

// Steal removes the oldest task. It returns nil when the deque is empty or
// when another thief or the owner won the race for the task.
func (d *Deque) Steal() *Task {
	top := d.top.Load()
	b := d.bottom.Load()
	if top >= b {
		return nil
	}

	// ring must be loaded after bottom so it contains position top
	t := d.buf.Load().get(top)
	if !d.top.CompareAndSwap(top, top+1) {
		return nil
	}
	return t
}

// Drain seals the deque and returns the remaining tasks oldest first.
// Pushes after Drain fail.
func (d *Deque) Drain() []*Task {
	d.owner.Lock()
	defer d.owner.Unlock()

	d.sealed = true
	var tasks []*Task
	for t := d.pop(); t != nil; t = d.pop() {
		tasks = append(tasks, t)
	}
	slices.Reverse(tasks)
	return tasks
}

// Sealed reports whether Drain has been called
func (d *Deque) Sealed() bool {
	d.owner.Lock()
	defer d.owner.Unlock()
	return d.sealed
}

// Len returns the approximate number of queued tasks
func (d *Deque) Len() int {
	n := d.bottom.Load() - d.top.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
