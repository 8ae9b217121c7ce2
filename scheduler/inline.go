package scheduler

/*
Inline runs every task synchronously on the submitting goroutine.

So the flow is: Submit → task() → return true

Tests use it to make sweeps deterministic: the sweep has finished by the time
the cache call that triggered it returns.
*/
type Inline struct{}

func (Inline) Submit(task func()) bool {
	task()
	return true
}
