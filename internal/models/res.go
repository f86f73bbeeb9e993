package models

// ApiResponse is the error envelope every failed request answers with.
type ApiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func ErrorResponse(err string, kind ErrorKind) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
		Code:    string(kind),
	}
}
