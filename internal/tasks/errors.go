package tasks

// CreateError is a job-creation failure whose message is shown to the
// client. The API maps any CreateError to HTTP 400.
type CreateError struct {
	Message string `json:"message"`
}

func (e *CreateError) Error() string {
	return e.Message
}

var (
	// ErrCatalogUnavailable signals a failed catalog page fetch.
	ErrCatalogUnavailable = &CreateError{Message: "Can't get books!"}
	// ErrNoBooks signals the entity has no books at all.
	ErrNoBooks = &CreateError{Message: "No books!"}
	// ErrNoEligibleBooks signals no book supports the requested format.
	ErrNoEligibleBooks = &CreateError{Message: "No books to archive!"}
	// ErrPersistFailed signals the job record could not be saved.
	ErrPersistFailed = &CreateError{Message: "Save task error"}
)
