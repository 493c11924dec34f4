// Package strpipe implements a bounded, multi-stage string-processing
// pipeline: a chain of independently running stage workers, each reading
// from its own capacity-bounded handoff buffer and forwarding its result
// to the next stage downstream, ending in a caller-supplied sink.
//
// A Pipeline is built from an ordered list of stage names resolved
// against a StageResolver, and a Sink that receives the final stage's
// output. Records move through the chain one at a time per stage, with
// backpressure applied at each handoff buffer: a stage that cannot keep
// up causes its upstream neighbor to block on Submit rather than grow
// memory without bound.
//
// End of input is communicated by submitting a sentinel record (see
// handoff.Sentinel). Every stage recognizes it, forwards it unchanged,
// marks its own input buffer finished, and exits its consumption loop —
// so a single sentinel submitted at the head of the pipeline drains the
// entire chain in order.
package strpipe
