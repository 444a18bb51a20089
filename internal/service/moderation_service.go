package service

import (
	"context"
	"path/filepath"
	"strings"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/pkg/logger"
	"photoquest_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	relevanceThreshold = 0.5
	qualityThreshold   = 0.6

	// 降级模式下的体积合理区间
	minSanePhotoBytes = 10 * 1024
	maxSanePhotoBytes = 30 * 1024 * 1024
)

// PhotoProbe 已上传照片的本地探测信息，由 controller 在上传前收集
type PhotoProbe struct {
	Filename string
	Width    int
	Height   int
	Size     int64
}

// ModerationService runs the three-stage pipeline: policy, quest relevance,
// photo quality. Verdicts are fail-closed: anything doubtful lands in
// pending_review, never silent approval.
type ModerationService struct {
	Classifier     VisionClassifier
	ModerationRepo *repository.ModerationRepository
}

func NewModerationService(classifier VisionClassifier, moderationRepo *repository.ModerationRepository) *ModerationService {
	return &ModerationService{
		Classifier:     classifier,
		ModerationRepo: moderationRepo,
	}
}

// Evaluate classifies the artifact and combines the three checks into a
// verdict. The classifier being unreachable degrades to local heuristics and
// a pending_review verdict with low confidence.
func (s *ModerationService) Evaluate(ctx context.Context, artifactURL string, probe PhotoProbe, requirements model.PhotoRequirements) (model.ModerationStatus, *model.ModerationResult) {
	classified, err := s.Classifier.Classify(ctx, artifactURL)
	if err != nil {
		logger.Log.Warn("classifier unreachable, degrading to local checks",
			zap.String("artifact", artifactURL), zap.Error(err))
		return s.evaluateDegraded(probe)
	}

	result := &model.ModerationResult{
		IsAppropriate: classified.IsAppropriate,
		Confidence:    classified.Confidence,
		Categories:    classified.Categories,
		Reason:        classified.Reason,
	}

	shouldBlock, needsManualReview := policyCheck(classified.Categories)
	result.Relevance = relevanceCheck(classified.Labels, requirements.Subjects)
	result.Quality = qualityCheck(classified, probe, requirements)

	verdict := combineVerdict(shouldBlock, needsManualReview, result.Relevance, result.Quality)
	monitoring.ModerationVerdicts.WithLabelValues(string(verdict)).Inc()
	return verdict, result
}

// evaluateDegraded applies filename and size sanity checks only. It never
// approves on its own.
func (s *ModerationService) evaluateDegraded(probe PhotoProbe) (model.ModerationStatus, *model.ModerationResult) {
	result := &model.ModerationResult{
		IsAppropriate: false,
		Confidence:    0.1,
		Degraded:      true,
		Categories: model.RiskCategories{
			Adult:    model.LikelihoodPossible,
			Violence: model.LikelihoodPossible,
			Racy:     model.LikelihoodPossible,
		},
		Reason: "classifier unavailable, local heuristic checks only",
	}

	ext := strings.ToLower(filepath.Ext(probe.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".heic" && ext != ".webp" {
		result.Reason = "unrecognized photo file extension"
		monitoring.ModerationVerdicts.WithLabelValues(string(model.ModerationRejected)).Inc()
		return model.ModerationRejected, result
	}
	if probe.Size < minSanePhotoBytes || probe.Size > maxSanePhotoBytes {
		result.Reason = "photo size outside sane bounds"
		monitoring.ModerationVerdicts.WithLabelValues(string(model.ModerationRejected)).Inc()
		return model.ModerationRejected, result
	}

	monitoring.ModerationVerdicts.WithLabelValues(string(model.ModerationPending)).Inc()
	return model.ModerationPending, result
}

// AppendAudit 记录一条不可变审核日志
func (s *ModerationService) AppendAudit(submission *model.Submission, verdict model.ModerationStatus, result *model.ModerationResult, reviewerID *uint, notes string) {
	entry := &model.ModerationLog{
		SubmissionID: submission.ID,
		QuestID:      submission.QuestID,
		UserID:       submission.UserID,
		Verdict:      verdict,
		ReviewerID:   reviewerID,
		Notes:        notes,
	}
	if result != nil {
		entry.Confidence = result.Confidence
		entry.Result = datatypes.NewJSONType(*result)
	}
	if err := s.ModerationRepo.Append(entry); err != nil {
		// 审计失败不阻断主流程，但必须可见
		logger.Log.Error("failed to append moderation audit log",
			zap.String("submission", submission.ID), zap.Error(err))
	}
}

// policyCheck maps categorical risk levels to a block / manual-review pair.
// LIKELY or VERY_LIKELY in any category blocks; POSSIBLE forces manual review.
func policyCheck(categories model.RiskCategories) (shouldBlock, needsManualReview bool) {
	for _, level := range []model.Likelihood{categories.Adult, categories.Violence, categories.Racy} {
		switch level {
		case model.LikelihoodLikely, model.LikelihoodVeryLikely:
			shouldBlock = true
		case model.LikelihoodPossible:
			needsManualReview = true
		}
	}
	if shouldBlock {
		needsManualReview = false
	}
	return shouldBlock, needsManualReview
}

// relevanceCheck scores detected labels against the quest's required subjects.
// No requirements means trivially relevant.
func relevanceCheck(labels []string, required []string) *model.QuestRelevance {
	if len(required) == 0 {
		return &model.QuestRelevance{IsRelevant: true, Score: 1.0}
	}

	detected := make(map[string]bool, len(labels))
	for _, l := range labels {
		detected[strings.ToLower(strings.TrimSpace(l))] = true
	}

	relevance := &model.QuestRelevance{}
	for _, subject := range required {
		if detected[strings.ToLower(strings.TrimSpace(subject))] {
			relevance.MatchingRequirements = append(relevance.MatchingRequirements, subject)
		} else {
			relevance.MissingRequirements = append(relevance.MissingRequirements, subject)
		}
	}

	relevance.Score = float64(len(relevance.MatchingRequirements)) / float64(len(required))
	relevance.IsRelevant = relevance.Score >= relevanceThreshold
	return relevance
}

// qualityCheck 加权质量评分：0.3 分辨率 + 0.3 光照 + 0.2 模糊 + 0.2 构图
func qualityCheck(classified *ClassifierResult, probe PhotoProbe, requirements model.PhotoRequirements) *model.PhotoQuality {
	quality := &model.PhotoQuality{
		Lighting:    classified.Lighting,
		Blur:        classified.Blur,
		Composition: classified.Composition,
	}

	quality.ResolutionPass = true
	if requirements.MinWidth > 0 && probe.Width < requirements.MinWidth {
		quality.ResolutionPass = false
	}
	if requirements.MinHeight > 0 && probe.Height < requirements.MinHeight {
		quality.ResolutionPass = false
	}

	resolutionScore := 0.0
	if quality.ResolutionPass {
		resolutionScore = 1.0
	}

	quality.OverallScore = 0.3*resolutionScore + 0.3*quality.Lighting + 0.2*quality.Blur + 0.2*quality.Composition
	quality.IsAcceptable = quality.OverallScore >= qualityThreshold
	return quality
}

func combineVerdict(shouldBlock, needsManualReview bool, relevance *model.QuestRelevance, quality *model.PhotoQuality) model.ModerationStatus {
	if shouldBlock {
		return model.ModerationRejected
	}
	if needsManualReview || !relevance.IsRelevant || !quality.IsAcceptable {
		return model.ModerationPending
	}
	return model.ModerationApproved
}
