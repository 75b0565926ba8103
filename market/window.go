package market

// Window 固定容量的 FIFO 窗口，超出容量时淘汰最旧元素。
type Window[T any] struct {
	limit int
	items []T
}

func NewWindow[T any](limit int) *Window[T] {
	if limit <= 0 {
		limit = 1
	}
	return &Window[T]{limit: limit, items: make([]T, 0, limit)}
}

// Push appends v and evicts from the front until the cap holds.
func (w *Window[T]) Push(v T) {
	w.items = append(w.items, v)
	if over := len(w.items) - w.limit; over > 0 {
		// 原地前移，底层数组容量保持有界
		n := copy(w.items, w.items[over:])
		w.items = w.items[:n]
	}
}

func (w *Window[T]) Len() int { return len(w.items) }

func (w *Window[T]) Cap() int { return w.limit }

// Last 返回最新元素；窗口为空时 ok=false。
func (w *Window[T]) Last() (v T, ok bool) {
	if len(w.items) == 0 {
		return v, false
	}
	return w.items[len(w.items)-1], true
}

// Tail returns the newest n items, oldest first. The slice aliases the window.
func (w *Window[T]) Tail(n int) []T {
	if n <= 0 {
		return nil
	}
	if n > len(w.items) {
		n = len(w.items)
	}
	return w.items[len(w.items)-n:]
}

// Items returns a copy of the whole window, oldest first.
func (w *Window[T]) Items() []T {
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Window[T]) Reset() {
	w.items = w.items[:0]
}
