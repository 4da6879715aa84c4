package transport

// GenericResponse wraps an error payload in the shape the teacher's
// handlers return for non-2xx responses.
type GenericResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
