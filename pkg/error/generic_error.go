package error

// GenericError is the contract the recovery middleware uses to translate
// panics into structured HTTP responses.
type GenericError interface {
	error
	ErrCode() string
	StatusCode() int
}
