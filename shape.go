package galkin

import "fmt"

// ShapeError reports an input slice whose length disagrees with the element
// count of the call, set by the ra slice. Transforms return it before any
// computation starts; there are no partial results.
type ShapeError struct {
	Param string // offending parameter name
	Len   int    // its length
	Want  int    // required length
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s has %d elements, want %d", e.Param, e.Len, e.Want)
}

// checkLen validates a required slice against the call's element count.
func checkLen(param string, s []float64, want int) error {
	if len(s) != want {
		return &ShapeError{Param: param, Len: len(s), Want: want}
	}
	return nil
}

// checkOptLen validates an optional error slice. nil means absent and passes.
func checkOptLen(param string, s []float64, want int) error {
	if s == nil {
		return nil
	}
	return checkLen(param, s, want)
}
