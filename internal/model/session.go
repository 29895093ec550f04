package model

import "time"

// ExamSession represents a bookable, time-boxed exam slot with a fixed
// maximum participant capacity.  Sessions are created and maintained by
// administrators; reservation activity never creates or removes them.
// All timestamps are stored in UTC.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display name of the exam slot.
//  StartTime   – when the exam begins.
//  EndTime     – when the exam ends (must be after StartTime).
//  MaxCapacity – maximum number of participants (must be > 0).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type ExamSession struct {
	ID          uint64    // exam_sessions.id
	Title       string    // exam_sessions.title
	StartTime   time.Time // exam_sessions.start_time
	EndTime     time.Time // exam_sessions.end_time
	MaxCapacity uint32    // exam_sessions.max_capacity
	CreatedAt   time.Time // exam_sessions.created_at
	UpdatedAt   time.Time // exam_sessions.updated_at
}
