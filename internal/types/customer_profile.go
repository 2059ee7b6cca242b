package types

import (
	"time"

	"gorm.io/datatypes"
)

// Qualification tags. At most one temperature tag (cold/warm/hot) is
// authoritative at a time; "customer" is sticky once present.
const (
	TagCold     = "cold"
	TagWarm     = "warm"
	TagHot      = "hot"
	TagCustomer = "customer"
)

const (
	ActivityActive  = "active"
	ActivityPassive = "passive"
)

// CustomerProfile is the per-customer CRM row owned by the merge engine
// during an automated requalification cycle. customer_id is the messaging
// platform user id and never changes.
type CustomerProfile struct {
	CustomerID        int64                       `gorm:"primaryKey;column:customer_id" json:"customer_id"`
	QualificationTags datatypes.JSONSlice[string] `gorm:"type:jsonb;column:qualification_tags" json:"qualification_tags"`
	FunnelStage       string                      `gorm:"column:funnel_stage" json:"funnel_stage"`
	LearnerLevels     datatypes.JSONSlice[string] `gorm:"type:jsonb;column:learner_levels" json:"learner_levels"`
	LearningGoals     datatypes.JSONSlice[string] `gorm:"type:jsonb;column:learning_goals" json:"learning_goals"`
	PainPoints        datatypes.JSONSlice[string] `gorm:"type:jsonb;column:pain_points" json:"pain_points"`
	Emails            datatypes.JSONSlice[string] `gorm:"type:jsonb;column:emails" json:"emails"`
	DialogueSummary   string                      `gorm:"column:dialogue_summary" json:"dialogue_summary"`
	ActivityFlag      string                      `gorm:"column:activity_flag" json:"activity_flag"`
	LastUpdated       time.Time                   `gorm:"column:last_updated" json:"last_updated"`
}

func (CustomerProfile) TableName() string { return "user_profiles" }
