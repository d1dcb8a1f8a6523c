package types

type DataResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type StatsResponse struct {
	Records   int `json:"records"`
	Processed int `json:"processed"`
	Indexed   int `json:"indexed"`
}

type ConversationListResponse struct {
	Names []string `json:"names"`
}
