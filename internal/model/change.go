package model

import "time"

// ChangeOp is the kind of write a Change describes.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
	ChangeDelete ChangeOp = "DELETE"
)

// Change describes a committed write. It identifies the row but carries no
// column values.
type Change struct {
	ID       string    `json:"id"`
	Table    string    `json:"table"`
	Op       ChangeOp  `json:"op"`
	RecordID int64     `json:"record_id"`
	At       time.Time `json:"at"`
}
