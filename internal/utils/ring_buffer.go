package utils

import "sync"

// RingBuffer is a fixed-size circular buffer of elements of type T.
// Pushing into a full buffer evicts the oldest element.
// Elements are kept in arrival order: from the oldest to the newest.
//
// Example:
//
//	rb := NewRingBuffer[int](3)
//	rb.Push(1)
//	rb.Push(2)
//	rb.Push(3)
//	rb.Push(4) // 1 is evicted
//	fmt.Println(rb.ToSlice()) // [2 3 4]
type RingBuffer[T any] struct {
	data  []T // backing array
	size  int // capacity
	count int // number of stored elements
	head  int // index of the oldest element
	tail  int // index of the next write position
	mu    sync.RWMutex
}

// NewRingBuffer creates a ring buffer of the given size.
// A non-positive size panics.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		panic("ring buffer size must be positive")
	}
	return &RingBuffer[T]{
		data: make([]T, size),
		size: size,
	}
}

// Push appends item to the end of the buffer, evicting the oldest element when full.
func (rb *RingBuffer[T]) Push(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.push(item)
}

func (rb *RingBuffer[T]) push(item T) {
	rb.data[rb.tail] = item
	rb.tail = (rb.tail + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
	} else {
		rb.head = (rb.head + 1) % rb.size
	}
}

// Len returns the number of stored elements, always within [0, Cap()].
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Cap returns the buffer capacity.
func (rb *RingBuffer[T]) Cap() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// At returns the element at index i, where 0 is the oldest and Len()-1 the newest.
// Panics when i is out of [0, Len()).
func (rb *RingBuffer[T]) At(i int) T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if i < 0 || i >= rb.count {
		panic("index out of range")
	}
	return rb.data[(rb.head+i)%rb.size]
}

// ToSlice returns a copy of the stored elements, oldest first.
// An empty buffer yields an empty, non-nil slice.
func (rb *RingBuffer[T]) ToSlice() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.snapshot()
}

func (rb *RingBuffer[T]) snapshot() []T {
	result := make([]T, rb.count)
	for i := 0; i < rb.count; i++ {
		result[i] = rb.data[(rb.head+i)%rb.size]
	}
	return result
}

// Retain drops every element for which keep returns false, preserving the order
// of the remaining ones. Returns the number of dropped elements.
func (rb *RingBuffer[T]) Retain(keep func(T) bool) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	items := rb.snapshot()
	var zero T
	for i := range rb.data {
		rb.data[i] = zero
	}
	rb.head, rb.tail, rb.count = 0, 0, 0

	dropped := 0
	for _, item := range items {
		if !keep(item) {
			dropped++
			continue
		}
		rb.push(item)
	}
	return dropped
}
