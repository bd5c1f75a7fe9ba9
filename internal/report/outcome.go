// Package report collects per-target submission outcomes.
package report

import "time"

// Outcome is the result of one target within one pass.
type Outcome struct {
	PassID    string    `json:"pass_id"`
	Pass      int       `json:"pass"`
	Index     int       `json:"target_index"`
	Owner     string    `json:"owner"`
	Amount    uint64    `json:"amount"`
	Signature string    `json:"signature,omitempty"`
	Error     string    `json:"error,omitempty"`
	Ts        time.Time `json:"ts"`
}

// OK reports whether the bundle was accepted by the endpoint.
func (o Outcome) OK() bool { return o.Error == "" }

// Recorder captures outcomes for later inspection.
type Recorder interface {
	Record(Outcome)
}

type tee []Recorder

func (t tee) Record(o Outcome) {
	for _, r := range t {
		r.Record(o)
	}
}

// Tee fans an outcome out to every non-nil recorder.
func Tee(recorders ...Recorder) Recorder {
	out := make(tee, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
