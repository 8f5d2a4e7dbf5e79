// Package tasks defines the messages exchanged over Kafka.
package tasks

import "strconv"

// Index actions.
const (
	ActionIndex  = "index"
	ActionDelete = "delete"
)

// DocumentIndexTask asks the indexing pipeline to add or remove one published document.
type DocumentIndexTask struct {
	DocumentID uint   `json:"document_id"`
	Action     string `json:"action"`
}

// Key identifies the task for retry bookkeeping.
func (t DocumentIndexTask) Key() string {
	return t.Action + ":" + strconv.FormatUint(uint64(t.DocumentID), 10)
}
