package dtos

type Response struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
	Data    any     `json:"data,omitempty"`
}
