package slotshandler

type HealthResponse struct {
	Status   string `json:"status"   example:"ok"`
	Capacity int    `json:"capacity" example:"8"`
	Occupied int    `json:"occupied" example:"3"`
} // @name HealthResponse

type SlotsQuery struct {
	Active bool `form:"active"`
} // @name SlotsQuery

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
