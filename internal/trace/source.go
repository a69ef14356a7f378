package trace

import (
	"errors"
	"io"
)

// Source delivers records in packet order. Next returns io.EOF once the
// trace is exhausted.
type Source interface {
	Next() (*Record, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (*Record, error)

// Next calls f.
func (f SourceFunc) Next() (*Record, error) { return f() }

// Slice returns a Source that yields recs in order.
func Slice(recs []*Record) Source {
	i := 0
	return SourceFunc(func() (*Record, error) {
		if i >= len(recs) {
			return nil, io.EOF
		}
		r := recs[i]
		i++
		return r, nil
	})
}

// Collect drains src into a slice.
func Collect(src Source) ([]*Record, error) {
	var out []*Record
	for {
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}
