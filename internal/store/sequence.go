package store

// sequence hands out increasing request ids for one resource. Only the most
// recently issued id may apply its result. Callers hold Store.mu.
type sequence struct {
	last uint64
}

func (q *sequence) next() uint64 {
	q.last++
	return q.last
}

func (q *sequence) isLatest(id uint64) bool {
	return id == q.last
}

// keyedSequence is a sequence per key. Keys are forgotten once their latest
// request settles so the map only holds keys with work in flight.
type keyedSequence[K comparable] struct {
	counter uint64
	last    map[K]uint64
}

func (q *keyedSequence[K]) next(key K) uint64 {
	if q.last == nil {
		q.last = make(map[K]uint64)
	}
	q.counter++
	q.last[key] = q.counter
	return q.counter
}

func (q *keyedSequence[K]) isLatest(key K, id uint64) bool {
	return q.last[key] == id
}

func (q *keyedSequence[K]) pending(key K) bool {
	_, ok := q.last[key]
	return ok
}

func (q *keyedSequence[K]) done(key K, id uint64) {
	if q.last[key] == id {
		delete(q.last, key)
	}
}
