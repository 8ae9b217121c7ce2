package scheduler

/*
This file defines what an "executor" is.

The cache never starts goroutines on its own. Background work (today: the
expiration sweep) is handed to an Executor, so the caller decides where it runs:
- Inline runs it on the calling goroutine (deterministic, for tests)
- Bounded runs it on a fresh goroutine, with a cap on how many run at once
- Worker queues it for one long-lived goroutine
*/

/*
Executor is the contract all executors follow.

Submit must not block. It returns false if the task was rejected (queue full,
concurrency cap reached, executor closed); the caller then owns the decision of
what to do with the work. Background work submitted here is fire-and-forget.
*/
type Executor interface {
	Submit(task func()) bool
}

// Func adapts a plain function to Executor.
type Func func(task func()) bool

func (f Func) Submit(task func()) bool { return f(task) }
