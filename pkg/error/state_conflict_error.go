package error

import "net/http"

type StateConflictError string

func (err StateConflictError) Error() string {
	return string(err)
}

func (err StateConflictError) ErrCode() string {
	return "STATE_CONFLICT_ERROR"
}

func (err StateConflictError) StatusCode() int {
	return http.StatusConflict
}
