// internal/models/result.go
package models

// ResultStatus is the outcome of one agent or of the whole request.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusEmpty   ResultStatus = "empty"
	StatusError   ResultStatus = "error"
)

// ErrorDetail describes why an agent slot failed.
type ErrorDetail struct {
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Category  string `json:"category,omitempty"`
	Retryable bool   `json:"retryable"`
}

// AgentResult is what a single agent produced for a query.
type AgentResult struct {
	Agent     AgentLabel             `json:"agent"`
	Status    ResultStatus           `json:"status"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Narrative string                 `json:"narrative"`
	Error     *ErrorDetail           `json:"error,omitempty"`
}

func SuccessResult(agent AgentLabel, narrative string, payload map[string]interface{}) AgentResult {
	return AgentResult{Agent: agent, Status: StatusSuccess, Narrative: narrative, Payload: payload}
}

func EmptyResult(agent AgentLabel, narrative string, payload map[string]interface{}) AgentResult {
	return AgentResult{Agent: agent, Status: StatusEmpty, Narrative: narrative, Payload: payload}
}

func ErrorResult(agent AgentLabel, detail ErrorDetail) AgentResult {
	return AgentResult{
		Agent:     agent,
		Status:    StatusError,
		Narrative: detail.Message,
		Error:     &detail,
	}
}

func (r AgentResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// FusedResponse is the single answer returned for a request.
type FusedResponse struct {
	RequestID  string        `json:"requestId"`
	Status     ResultStatus  `json:"status"`
	Narrative  string        `json:"narrative"`
	Results    []AgentResult `json:"results"`
	Intent     []AgentLabel  `json:"intent"`
	CrossAgent bool          `json:"crossAgent"`
}

// OverallStatus is success when any result succeeded, error when every result
// errored and empty otherwise.
func OverallStatus(results []AgentResult) ResultStatus {
	if len(results) == 0 {
		return StatusError
	}
	allErrored := true
	for _, r := range results {
		if r.Status == StatusSuccess {
			return StatusSuccess
		}
		if r.Status != StatusError {
			allErrored = false
		}
	}
	if allErrored {
		return StatusError
	}
	return StatusEmpty
}

// ResultFor returns the slot for label, if present.
func (f FusedResponse) ResultFor(label AgentLabel) (AgentResult, bool) {
	for _, r := range f.Results {
		if r.Agent == label {
			return r, true
		}
	}
	return AgentResult{}, false
}
