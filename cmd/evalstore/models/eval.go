package models

import (
	"encoding/json"
	"time"
)

// Eval is a cached function evaluation. Maps to: evals table.
// The triple (fn_key, fn_hash, args_hash) identifies at most one eval
// per owner; the result bytes live in the blob the row references.
type Eval struct {
	FnKey        string          `db:"fn_key" json:"fn_key"`
	FnHash       string          `db:"fn_hash" json:"fn_hash"`
	Args         json.RawMessage `db:"args" json:"args,omitempty"`
	ArgsHash     string          `db:"args_hash" json:"args_hash"`
	ContentHash  string          `db:"content_hash" json:"content_hash"`
	IsExperiment bool            `db:"is_experiment" json:"is_experiment"`
	Accesses     int64           `db:"accesses" json:"accesses"`
	StartTime    *time.Time      `db:"start_time" json:"start_time,omitempty"`
}

// EvalInsert is the metadata block of a framed eval upload.
type EvalInsert struct {
	FnKey         string          `json:"fn_key"`
	FnHash        string          `json:"fn_hash"`
	Args          json.RawMessage `json:"args,omitempty"`
	ArgsHash      string          `json:"args_hash"`
	ContentHash   string          `json:"content_hash"`
	ContentLength int64           `json:"content_length"`
	IsExperiment  bool            `json:"is_experiment,omitempty"`
	StartTime     *time.Time      `json:"start_time,omitempty"`
}
