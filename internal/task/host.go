package task

// Subscription is an active start-notification registration.
type Subscription interface {
	// Unsubscribe stops delivery. It is safe to call more than once.
	Unsubscribe()
}

// Host is the task environment the monitor observes.
//
// A started task is listed by Running before its start is delivered, and
// each start is delivered once with the execution ID its descriptor
// carries in Running. Observers that subscribe and then take a snapshot
// may see the same execution both ways and should count it once by ID.
type Host interface {
	// OnStart registers fn to be called for each task start. Calls are
	// delivered one at a time, never concurrently with each other.
	OnStart(fn func(Descriptor)) Subscription

	// Running returns a snapshot of the currently executing tasks.
	Running() []Descriptor
}
