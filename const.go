package uthread

// MaxThreads is the size of the identifier space, [0, MaxThreads). Id 0 is
// reserved for the bootstrap thread, leaving MaxThreads-1 user-creatable
// slots.
const MaxThreads = 100

// StackSize is the default per-thread stack reservation in bytes. It is
// retained as a resource-accounting figure only; see tcb.stack.
const StackSize = 8192

// minStackSize is the platform floor a caller-supplied WithStackSize value
// is validated against.
const minStackSize = 1024
