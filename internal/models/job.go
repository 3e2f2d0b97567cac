package models

// JobStatus values advance strictly in_progress -> archiving -> complete.
// There is no failed state: a job whose downloads all fail still completes
// with an empty archive.
type JobStatus string

const (
	StatusInProgress JobStatus = "in_progress"
	StatusArchiving  JobStatus = "archiving"
	StatusComplete   JobStatus = "complete"
)

// EntityKind identifies which catalog entity a job targets.
type EntityKind string

const (
	KindSequence   EntityKind = "sequence"
	KindAuthor     EntityKind = "author"
	KindTranslator EntityKind = "translator"
)

// Valid reports whether k is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindSequence, KindAuthor, KindTranslator:
		return true
	}
	return false
}

// Job is the persisted state of one archive request. It lives in Redis under
// an expiring key and is never explicitly deleted.
type Job struct {
	ID              string     `json:"id"`
	EntityID        int        `json:"entity_id"`
	EntityKind      EntityKind `json:"entity_kind"`
	Subtasks        []string   `json:"subtasks"`
	Status          JobStatus  `json:"status"`
	ResultObjectKey string     `json:"result_object_key,omitempty"`
	ResultLink      string     `json:"result_link,omitempty"`
}
