package models

import "encoding/json"

// TriggerPayload is the JSON message body that scopes one invocation. An
// empty payload means "resolve the full configured scope".
type TriggerPayload struct {
	Folder    string `json:"folder,omitempty"`
	Period    string `json:"period,omitempty"`
	File      string `json:"file,omitempty"`
	ListFiles bool   `json:"list_files,omitempty"`
	DataType  string `json:"data_type,omitempty"`
	WriteMode string `json:"write_mode,omitempty"`
	Year      int    `json:"year,omitempty"`
	Quarter   int    `json:"quarter,omitempty"`
}

func ParseTriggerPayload(data []byte) (TriggerPayload, error) {
	var p TriggerPayload
	if len(data) == 0 {
		return p, nil
	}
	err := json.Unmarshal(data, &p)
	return p, err
}

// PeriodScope returns the explicit period scope, accepting both the crawler's
// "folder" field and the loader's "period" field.
func (p TriggerPayload) PeriodScope() string {
	if p.Folder != "" {
		return p.Folder
	}
	return p.Period
}

// WriteMode is the warehouse write disposition.
type WriteMode string

const (
	WriteReplace WriteMode = "REPLACE"
	WriteAppend  WriteMode = "APPEND"
)

// LoadRequest scopes one warehouse-loading run. Constructed per invocation
// from the trigger payload, never persisted.
type LoadRequest struct {
	Period    string
	DataType  string
	WriteMode WriteMode
}

// Counts summarizes one invocation. Crawlers report Downloaded, the warehouse
// loader reports Loaded; each component's zero-valued counterpart is omitted
// from the serialized result.
type Counts struct {
	Downloaded int `json:"downloaded,omitempty"`
	Loaded     int `json:"loaded,omitempty"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Failure identifies one failed target and its taxonomy class.
type Failure struct {
	Target     string `json:"target"`
	ErrorClass string `json:"error_class"`
}

const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// ExecutionResult is the structured record every invocation returns, even on
// partial failure.
type ExecutionResult struct {
	Status   string    `json:"status"`
	Counts   Counts    `json:"counts"`
	Failures []Failure `json:"failures,omitempty"`

	// Listing carries discovery-only responses (list_files mode).
	Listing []string `json:"listing,omitempty"`
}

// RecordFailure appends a classified failure for one target.
func (r *ExecutionResult) RecordFailure(target string, err error) {
	r.Counts.Failed++
	r.Failures = append(r.Failures, Failure{Target: target, ErrorClass: ErrorClass(err)})
}

// Finalize derives the overall status from the counts: a fully-failed run is
// distinguishable from a partially-failed one by its zero processed count.
func (r *ExecutionResult) Finalize() {
	switch {
	case r.Counts.Failed == 0:
		r.Status = StatusOK
	case r.Counts.Downloaded == 0 && r.Counts.Loaded == 0 && r.Counts.Skipped == 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}
