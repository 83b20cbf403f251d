package models

// QueryRequest is the body of POST /v2/op/query.
type QueryRequest struct {
	Entities []EntityRef `json:"entities" validate:"required,dive"`

	// Attrs restricts the returned attributes. Nil means all of them.
	Attrs []string `json:"attrs,omitempty"`
}

// EntityRef names one entity to resolve.
type EntityRef struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type" validate:"required"`
}

// ErrorBody is the body of a failed query.
type ErrorBody struct {
	Error string `json:"error"`
}
