package utils

// ResponseData is the envelope every REST handler returns.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics on a non-nil error so the recovery middleware can map
// typed errors onto HTTP responses in one place.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
