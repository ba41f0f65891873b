package dto

type SuccessResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Meta    *ListMeta `json:"meta,omitempty"`
}

type ListMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ErrorResponse struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func OK(data any) SuccessResponse {
	return SuccessResponse{Success: true, Data: data}
}

func List(data any, total, limit, offset int) SuccessResponse {
	return SuccessResponse{Success: true, Data: data, Meta: &ListMeta{Total: total, Limit: limit, Offset: offset}}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RevokedResponse struct {
	Revoked int `json:"revoked"`
}
