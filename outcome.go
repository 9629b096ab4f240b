package asyncevents

// ResultStatus tags a single subscriber's outcome within an Outcome Envelope.
type ResultStatus string

const (
	// StatusFulfilled marks a subscriber that completed without error (or,
	// under Deliver, called ack with a nil error).
	StatusFulfilled ResultStatus = "fulfilled"
	// StatusRejected marks a subscriber that errored, or, under Deliver,
	// called ack with a non-nil error, or timed out.
	StatusRejected ResultStatus = "rejected"
)

// Result is one subscriber's tagged outcome. Value is populated only when
// Status is StatusFulfilled; Reason only when Status is StatusRejected.
type Result struct {
	Status ResultStatus
	Value  any
	Reason error
}

func fulfilled(v any) Result { return Result{Status: StatusFulfilled, Value: v} }
func rejected(err error) Result {
	return Result{Status: StatusRejected, Reason: err}
}

// Outcome is the producer-visible envelope returned by Publish, Execute, and
// Deliver. Emit does not return an Outcome: it returns only the Metadata, with
// no count of matched subscriptions. Results has exactly Count entries,
// ordered by registration order over the matched subscriptions (not
// completion order).
type Outcome struct {
	Count   int
	Meta    Metadata
	Results []Result
}
