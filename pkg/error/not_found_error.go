package error

import "net/http"

// NotFoundError covers lookups of campaigns and contacts by id. The store
// returns it instead of gorm.ErrRecordNotFound so handlers map it to 404.
type NotFoundError string

func (err NotFoundError) Error() string {
	return string(err)
}

func (err NotFoundError) ErrCode() string {
	return "NOT_FOUND_ERROR"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}
