package model

import (
	"time"

	"gorm.io/datatypes"
)

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending_review"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Likelihood 分类器输出的风险等级
type Likelihood string

const (
	LikelihoodVeryUnlikely Likelihood = "VERY_UNLIKELY"
	LikelihoodUnlikely     Likelihood = "UNLIKELY"
	LikelihoodPossible     Likelihood = "POSSIBLE"
	LikelihoodLikely       Likelihood = "LIKELY"
	LikelihoodVeryLikely   Likelihood = "VERY_LIKELY"
)

// RiskCategories per-category risk levels from the image classifier.
type RiskCategories struct {
	Adult    Likelihood `json:"adult"`
	Violence Likelihood `json:"violence"`
	Racy     Likelihood `json:"racy"`
}

// QuestRelevance 题材匹配结果
type QuestRelevance struct {
	IsRelevant           bool     `json:"isRelevant"`
	Score                float64  `json:"score"`
	MatchingRequirements []string `json:"matchingRequirements,omitempty"`
	MissingRequirements  []string `json:"missingRequirements,omitempty"`
}

// PhotoQuality 质量评估结果
type PhotoQuality struct {
	IsAcceptable   bool    `json:"isAcceptable"`
	OverallScore   float64 `json:"overallScore"`
	ResolutionPass bool    `json:"resolutionPass"`
	Lighting       float64 `json:"lighting"`
	Blur           float64 `json:"blur"`
	Composition    float64 `json:"composition"`
}

// ModerationResult 自动审核的完整结果，存储为JSON列
type ModerationResult struct {
	IsAppropriate bool            `json:"isAppropriate"`
	Confidence    float64         `json:"confidence"`
	Categories    RiskCategories  `json:"categories"`
	Relevance     *QuestRelevance `json:"questRelevance,omitempty"`
	Quality       *PhotoQuality   `json:"photoQuality,omitempty"`
	Degraded      bool            `json:"degraded,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// Submission 一次照片提交；除审核状态字段外不可变
// swagger:model Submission
type Submission struct {
	UUIDBase
	AttemptID string `gorm:"size:36;index;not null" json:"attemptId"`
	QuestID   uint   `gorm:"index;not null" json:"questId"`
	UserID    uint   `gorm:"index;not null" json:"userId"`

	// ArtifactPath is the object-store key; empty after a rejected submission's
	// compensating delete. ArtifactURL is the retrievable URL while it exists.
	ArtifactPath string `gorm:"size:255" json:"artifactPath"`
	ArtifactURL  string `gorm:"size:255" json:"artifactUrl"`

	ModerationStatus ModerationStatus                     `gorm:"size:20;default:'pending_review';index" json:"moderationStatus"`
	ModerationResult datatypes.JSONType[ModerationResult] `json:"moderationResult"`

	// RewardSettled marks whether XP settlement already ran for this submission's
	// attempt. pending_review submissions settle later, on moderator approval.
	RewardSettled bool `gorm:"default:false" json:"rewardSettled"`

	ReviewerID *uint      `json:"reviewerId,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`

	Votes       int       `gorm:"default:0" json:"votes"`
	SubmittedAt time.Time `gorm:"not null" json:"submittedAt"`
}

func (Submission) TableName() string {
	return "submissions"
}
