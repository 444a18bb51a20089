package service

import (
	"context"
	"errors"
	"testing"

	"photoquest_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	result *ClassifierResult
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, artifactURL string) (*ClassifierResult, error) {
	return f.result, f.err
}

func cleanClassifierResult() *ClassifierResult {
	return &ClassifierResult{
		IsAppropriate: true,
		Confidence:    0.95,
		Categories: model.RiskCategories{
			Adult:    model.LikelihoodVeryUnlikely,
			Violence: model.LikelihoodVeryUnlikely,
			Racy:     model.LikelihoodUnlikely,
		},
		Labels:      []string{"bridge", "river", "sunset"},
		Lighting:    0.9,
		Blur:        0.9,
		Composition: 0.8,
	}
}

func goodProbe() PhotoProbe {
	return PhotoProbe{Filename: "shot.jpg", Width: 2000, Height: 1500, Size: 2 * 1024 * 1024}
}

func TestPolicyCheckGrid(t *testing.T) {
	cases := []struct {
		name   string
		cats   model.RiskCategories
		block  bool
		manual bool
	}{
		{"all clear", model.RiskCategories{Adult: model.LikelihoodVeryUnlikely, Violence: model.LikelihoodUnlikely, Racy: model.LikelihoodVeryUnlikely}, false, false},
		{"possible adult", model.RiskCategories{Adult: model.LikelihoodPossible, Violence: model.LikelihoodVeryUnlikely, Racy: model.LikelihoodVeryUnlikely}, false, true},
		{"likely violence", model.RiskCategories{Adult: model.LikelihoodVeryUnlikely, Violence: model.LikelihoodLikely, Racy: model.LikelihoodVeryUnlikely}, true, false},
		{"very likely racy", model.RiskCategories{Adult: model.LikelihoodVeryUnlikely, Violence: model.LikelihoodVeryUnlikely, Racy: model.LikelihoodVeryLikely}, true, false},
		{"block wins over manual", model.RiskCategories{Adult: model.LikelihoodPossible, Violence: model.LikelihoodVeryLikely, Racy: model.LikelihoodVeryUnlikely}, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block, manual := policyCheck(tc.cats)
			assert.Equal(t, tc.block, block)
			assert.Equal(t, tc.manual, manual)
		})
	}
}

func TestRelevanceCheck(t *testing.T) {
	// 无要求即视为相关
	r := relevanceCheck([]string{"anything"}, nil)
	assert.True(t, r.IsRelevant)
	assert.Equal(t, 1.0, r.Score)

	// 2/3 命中，大小写不敏感
	r = relevanceCheck([]string{"Bridge", "RIVER", "cat"}, []string{"bridge", "river", "sunset"})
	assert.True(t, r.IsRelevant)
	assert.InDelta(t, 0.667, r.Score, 0.001)
	assert.ElementsMatch(t, []string{"bridge", "river"}, r.MatchingRequirements)
	assert.ElementsMatch(t, []string{"sunset"}, r.MissingRequirements)

	// 1/3 命中低于阈值
	r = relevanceCheck([]string{"bridge"}, []string{"bridge", "river", "sunset"})
	assert.False(t, r.IsRelevant)
}

func TestQualityCheckWeights(t *testing.T) {
	classified := cleanClassifierResult()
	q := qualityCheck(classified, goodProbe(), model.PhotoRequirements{MinWidth: 1024, MinHeight: 768})

	// 0.3*1 + 0.3*0.9 + 0.2*0.9 + 0.2*0.8
	assert.InDelta(t, 0.91, q.OverallScore, 1e-9)
	assert.True(t, q.IsAcceptable)
	assert.True(t, q.ResolutionPass)

	// 分辨率不足会拖垮总分
	small := goodProbe()
	small.Width = 640
	q = qualityCheck(classified, small, model.PhotoRequirements{MinWidth: 1024})
	assert.False(t, q.ResolutionPass)
	assert.InDelta(t, 0.61, q.OverallScore, 1e-9)
}

func TestEvaluateApprovesCleanPhoto(t *testing.T) {
	svc := NewModerationService(&fakeClassifier{result: cleanClassifierResult()}, nil)

	verdict, result := svc.Evaluate(context.Background(), "http://x/1.jpg", goodProbe(),
		model.PhotoRequirements{Subjects: []string{"bridge", "river"}})
	require.NotNil(t, result)
	assert.Equal(t, model.ModerationApproved, verdict)
	assert.False(t, result.Degraded)
}

func TestEvaluateBlocksHighRisk(t *testing.T) {
	classified := cleanClassifierResult()
	classified.Categories.Adult = model.LikelihoodVeryLikely
	svc := NewModerationService(&fakeClassifier{result: classified}, nil)

	verdict, _ := svc.Evaluate(context.Background(), "http://x/1.jpg", goodProbe(), model.PhotoRequirements{})
	assert.Equal(t, model.ModerationRejected, verdict)
}

func TestEvaluatePossibleGoesToManualReview(t *testing.T) {
	classified := cleanClassifierResult()
	classified.Categories.Racy = model.LikelihoodPossible
	svc := NewModerationService(&fakeClassifier{result: classified}, nil)

	verdict, _ := svc.Evaluate(context.Background(), "http://x/1.jpg", goodProbe(), model.PhotoRequirements{})
	assert.Equal(t, model.ModerationPending, verdict)
}

func TestEvaluateIrrelevantPhotoGoesToManualReview(t *testing.T) {
	svc := NewModerationService(&fakeClassifier{result: cleanClassifierResult()}, nil)

	verdict, result := svc.Evaluate(context.Background(), "http://x/1.jpg", goodProbe(),
		model.PhotoRequirements{Subjects: []string{"mountain", "snow", "goat"}})
	assert.Equal(t, model.ModerationPending, verdict)
	assert.False(t, result.Relevance.IsRelevant)
}

func TestEvaluateDegradedOnClassifierOutage(t *testing.T) {
	svc := NewModerationService(&fakeClassifier{err: errors.New("connection refused")}, nil)

	// 合理的照片进入人工审核，绝不自动通过
	verdict, result := svc.Evaluate(context.Background(), "http://x/1.jpg", goodProbe(), model.PhotoRequirements{})
	assert.Equal(t, model.ModerationPending, verdict)
	assert.True(t, result.Degraded)
	assert.Less(t, result.Confidence, 0.5)

	// 本地启发式都过不了的直接拒绝
	badExt := goodProbe()
	badExt.Filename = "payload.exe"
	verdict, _ = svc.Evaluate(context.Background(), "http://x/2.jpg", badExt, model.PhotoRequirements{})
	assert.Equal(t, model.ModerationRejected, verdict)

	tiny := goodProbe()
	tiny.Size = 100
	verdict, _ = svc.Evaluate(context.Background(), "http://x/3.jpg", tiny, model.PhotoRequirements{})
	assert.Equal(t, model.ModerationRejected, verdict)
}
