package utils

// ResponseData is the REST response envelope.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results"`
}

// PanicIfNeeded panics on a non-nil error so the recovery middleware can
// translate it into an HTTP response.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
