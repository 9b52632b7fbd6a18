// Package taskstore reads and seeds evaluation tasks in a relational
// database. The criteria table is the source of truth; the tasks table is a
// derived view maintained by the init command, one row per task carrying its
// prompt and serialized criteria list.
package taskstore

import (
	"gorm.io/datatypes"
)

// CriterionRow is one rubric criterion in the criteria table. Several rows
// share a task_id and each repeats the task prompt.
type CriterionRow struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Domain        string `gorm:"size:64;index;not null" json:"domain"`
	TaskID        string `gorm:"column:task_id;size:64;index;not null" json:"task_id"`
	CriterionID   int    `gorm:"column:criterion_id;not null" json:"criterion_id"`
	Prompt        string `gorm:"type:text" json:"prompt"`
	Description   string `gorm:"type:text;not null" json:"description"`
	CriterionType string `gorm:"column:criterion_type;size:64" json:"criterion_type"`
	HurdleTag     string `gorm:"column:hurdle_tag;size:32" json:"hurdle_tag"`
	Grounding     string `gorm:"size:64" json:"grounding"`
}

// TableName overrides the default pluralization.
func (CriterionRow) TableName() string { return "criteria" }

// TaskRow is one initialized task in the tasks table.
type TaskRow struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	Domain   string         `gorm:"size:64;uniqueIndex:uq_tasks_domain_task;not null" json:"domain"`
	TaskID   string         `gorm:"column:task_id;size:64;uniqueIndex:uq_tasks_domain_task;not null" json:"task_id"`
	Prompt   string         `gorm:"type:text;not null" json:"prompt"`
	Criteria datatypes.JSON `gorm:"type:json" json:"criteria"`
}

func (TaskRow) TableName() string { return "tasks" }

// Criterion is the serialized form of one criterion on a task row. The JSON
// keys match the criteria lists already stored upstream.
type Criterion struct {
	CriterionID int    `json:"criterion_id"`
	ID          int    `json:"id"`
	Description string `json:"description"`
	Type        string `json:"type"`
	HurdleTag   string `json:"hurdle_tag"`
	Grounding   string `json:"grounded_status"`
}
