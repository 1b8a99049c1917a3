// Package models defines the core data structures shared by the onboarding
// SDK and the reference backend: the bridge result types collected from the
// embedded content, the wire payloads of the resolve API, and the backend's
// project/flow records.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// QuestionType identifies the kind of question a response belongs to.
// It is carried as an opaque string: remote content may ship values this
// build does not know about, and decoding must never fail on them.
type QuestionType string

const (
	// QuestionText is a free-text question.
	QuestionText QuestionType = "text"
	// QuestionSingleChoice is a single-selection question.
	QuestionSingleChoice QuestionType = "single_choice"
	// QuestionMultipleChoice is a multi-selection question.
	QuestionMultipleChoice QuestionType = "multiple_choice"
	// QuestionPicker is a value picker (height, weight, etc.).
	QuestionPicker QuestionType = "picker"
)

// Unit qualifies picker answers with a measurement system.
type Unit string

const (
	// UnitMetric indicates metric units.
	UnitMetric Unit = "metric"
	// UnitImperial indicates imperial units.
	UnitImperial Unit = "imperial"
)

// Answer is either a single string or an ordered list of strings, depending
// on the question kind. Decoding probes the single-string shape first, then
// the list shape, and fails only if neither matches.
type Answer struct {
	// Value holds the answer for single-valued questions.
	Value string
	// Values holds the answers for multi-valued questions.
	Values []string
	// multi records which variant was decoded or constructed.
	multi bool
}

// StringAnswer constructs the single-string variant.
func StringAnswer(v string) Answer {
	return Answer{Value: v}
}

// ListAnswer constructs the string-list variant.
func ListAnswer(vs []string) Answer {
	return Answer{Values: vs, multi: true}
}

// IsList reports whether the answer holds the list variant.
func (a Answer) IsList() bool { return a.multi }

// AsString flattens the answer to a single string. List answers are joined
// with ", " in their original order.
func (a Answer) AsString() string {
	if !a.multi {
		return a.Value
	}
	return strings.Join(a.Values, ", ")
}

// UnmarshalJSON decodes either a JSON string or a JSON array of strings.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = StringAnswer(s)
		return nil
	}
	var vs []string
	if err := json.Unmarshal(data, &vs); err == nil {
		*a = ListAnswer(vs)
		return nil
	}
	return fmt.Errorf("answer is neither a string nor a string array: %s", data)
}

// MarshalJSON encodes the variant that was decoded or constructed.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multi {
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Value)
}

// Response is one answered question collected from the embedded content.
type Response struct {
	// QuestionText is the question as shown to the user.
	QuestionText string `json:"questionText"`
	// QuestionType is the kind of question answered.
	QuestionType QuestionType `json:"questionType"`
	// Answer is the user's answer.
	Answer Answer `json:"answer"`
	// ScreenID identifies the flow screen the question appeared on, if the
	// content reported one.
	ScreenID string `json:"screenId,omitempty"`
	// Unit qualifies picker answers; empty for other question types.
	Unit Unit `json:"unit,omitempty"`
}

// Result is the structured outcome of one onboarding session, handed to the
// completion callback. Responses keep the order in which the content
// reported them.
type Result struct {
	FlowID    string     `json:"flowId"`
	Responses []Response `json:"responses"`
}

// ConfigResponse is the body of a successful GET /v1/config.
type ConfigResponse struct {
	BackendDomain string `json:"backendDomain"`
}

// ResolveResponse is the body of a successful GET /api/onboarding/resolve.
type ResolveResponse struct {
	FlowID string `json:"flowId"`
}

// Project is a backend tenant: one mobile application with its api key and
// the domain its flows are served from.
type Project struct {
	// ID is the unique project identifier.
	ID string
	// APIKey authenticates config lookups for this project.
	APIKey string
	// BackendDomain is the base URL flows for this project resolve against.
	BackendDomain string
}

// Flow is one remotely authored onboarding flow variant of a project.
type Flow struct {
	// ID is the unique flow identifier, opaque to clients.
	ID string
	// ProjectID is the owning project.
	ProjectID string
	// Active marks the flow as eligible for allocation.
	Active bool
	// Weight biases allocation between concurrently active flows.
	Weight int
}

// Assignment pins a device to a flow so repeated resolves for the same
// device return the same variant.
type Assignment struct {
	DeviceID   string
	ProjectID  string
	FlowID     string
	AssignedAt time.Time
	LastSeen   time.Time
}
