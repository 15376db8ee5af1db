package results

import "sync"

// Log is the append-only record of completed runs together with their
// classification. It is safe for concurrent use.
type Log struct {
	mu         sync.RWMutex
	results    []Result
	classifier *Classifier
	lastIndex  int
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{classifier: NewClassifier()}
}

// Append numbers r with the next experiment index, records it and returns
// the stored copy.
func (l *Log) Append(r Result) Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastIndex++
	r.Index = l.lastIndex
	l.results = append(l.results, r)
	l.classifier.Insert(r)
	return r
}

// Import records rs as decoded, keeping their indices. Later appends
// continue from the largest index seen.
func (l *Log) Import(rs []Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range rs {
		l.results = append(l.results, r)
		l.classifier.Insert(r)
		if r.Index > l.lastIndex {
			l.lastIndex = r.Index
		}
	}
}

// Results returns every result in insertion order.
func (l *Log) Results() []Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Result(nil), l.results...)
}

// Groups returns the classified groups.
func (l *Log) Groups() []Group {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.classifier.Groups()
}

// Len returns the number of results.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.results)
}

// Clear empties the log and resets the index.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = nil
	l.classifier.Reset()
	l.lastIndex = 0
}
