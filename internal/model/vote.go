package model

// Vote 对提交照片的点赞；同一用户对同一提交仅一次
type Vote struct {
	BaseModel
	SubmissionID string `gorm:"size:36;index:idx_vote_submission_voter,unique;not null" json:"submissionId"`
	VoterID      uint   `gorm:"index:idx_vote_submission_voter,unique;not null" json:"voterId"`
}

func (Vote) TableName() string {
	return "votes"
}
