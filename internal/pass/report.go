package pass

import "time"

// PassInfo records the outcome of one executed pass.
type PassInfo struct {
	ID       ID            `json:"id"`
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// ExecutionResult is what the Executor returns for one schedule.
type ExecutionResult struct {
	Passes     []PassInfo `json:"passes"`
	Successful int        `json:"successful"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	Errors     []error    `json:"-"`
}

// IsSuccess reports whether no pass failed.
func (r *ExecutionResult) IsSuccess() bool { return r.Failed == 0 }

func (r *ExecutionResult) record(info PassInfo, err error) {
	r.Passes = append(r.Passes, info)
	if info.Success {
		r.Successful++
		return
	}
	r.Failed++
	r.Errors = append(r.Errors, err)
}

// Report summarizes a full analysis run.
type Report struct {
	Passes         []PassInfo    `json:"passes"`
	TotalDuration  time.Duration `json:"totalDuration"`
	PassesExecuted int           `json:"passesExecuted"`
	PassesSkipped  int           `json:"passesSkipped"`
	Success        bool          `json:"success"`
	Errors         []string      `json:"errors,omitempty"`
	Stats          Stats         `json:"stats"`
}

// Failed returns the infos of the passes that failed.
func (r *Report) Failed() []PassInfo {
	var out []PassInfo
	for _, p := range r.Passes {
		if !p.Success {
			out = append(out, p)
		}
	}
	return out
}

func newReport(res *ExecutionResult, total time.Duration, stats Stats) *Report {
	rep := &Report{
		Passes:         res.Passes,
		TotalDuration:  total,
		PassesExecuted: res.Successful,
		PassesSkipped:  res.Skipped,
		Success:        res.IsSuccess(),
		Stats:          stats,
	}
	for _, err := range res.Errors {
		rep.Errors = append(rep.Errors, err.Error())
	}
	return rep
}
