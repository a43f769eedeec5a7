package models

import "fmt"

// Report is the outcome of a validation pass. Valid is true iff Errors is empty.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewReport returns an empty, valid report.
func NewReport() Report {
	return Report{Valid: true, Errors: []string{}, Warnings: []string{}}
}

// Errorf records a hard error.
func (r *Report) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

// Warnf records a non-fatal warning.
func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Merge appends other's findings, prefixing each with prefix when non-empty.
func (r *Report) Merge(prefix string, other Report) {
	for _, e := range other.Errors {
		r.Errorf("%s", withPrefix(prefix, e))
	}
	for _, w := range other.Warnings {
		r.Warnf("%s", withPrefix(prefix, w))
	}
}

func withPrefix(prefix, msg string) string {
	if prefix == "" {
		return msg
	}
	return prefix + ": " + msg
}
