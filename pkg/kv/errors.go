package kv

import "fmt"

type batchTooLargeError struct{ n int }

func (e *batchTooLargeError) Error() string {
	return fmt.Sprintf("kv: batch of %d keys exceeds MaxBatchKeys (%d); caller must chunk", e.n, MaxBatchKeys)
}

func errBatchTooLarge(n int) error { return &batchTooLargeError{n: n} }
