// Package metrics centralizes the metric shapes emitted by the verification
// pipeline so names and tags stay consistent across components.
package metrics

import (
	"time"

	obserrors "github.com/caretrack/licensure/internal/observability/errors"
	"github.com/caretrack/licensure/internal/observability/statsd"
)

// Result tag values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// RunMetric captures one batch verification run for emission.
type RunMetric struct {
	Result       string
	Processed    int
	AutoVerified int
	TasksCreated int
	Errors       int
	Duration     time.Duration
	Err          error
}

// EmitRun emits the standard per-run metric set.
func EmitRun(sink statsd.Sink, in RunMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("verify_run.completed", 1, tags)
	sink.Count("verify_run.licenses_processed", int64(in.Processed), nil)
	sink.Count("verify_run.auto_verified", int64(in.AutoVerified), nil)
	sink.Count("verify_run.tasks_created", int64(in.TasksCreated), nil)
	sink.Count("verify_run.errors", int64(in.Errors), nil)

	if in.Duration > 0 {
		sink.Timing("verify_run.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags shallow-copies a tag map, dropping empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
