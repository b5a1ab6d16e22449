package recommender

// BlendHybrid combines a content and a collaborative score for the same job
// with fixed 0.6/0.4 weights. Reason lists are concatenated (content first)
// and both raw factor breakdowns are kept alongside the weights, so each
// strategy's contribution stays recoverable from the blended record.
func BlendHybrid(content, collaborative ScoredJob) ScoredJob {
	score := content.Score*hybridContentWeight + collaborative.Score*hybridCollaborativeWeight

	reasons := make([]string, 0, len(content.Reasons)+len(collaborative.Reasons))
	reasons = append(reasons, content.Reasons...)
	reasons = append(reasons, collaborative.Reasons...)

	factors := HybridFactors{
		ContentWeight:       hybridContentWeight,
		CollaborativeWeight: hybridCollaborativeWeight,
		ContentScore:        content.Score,
		CollaborativeScore:  collaborative.Score,
		Content:             content.Factors.Content,
		Collaborative:       collaborative.Factors.Collaborative,
	}

	return ScoredJob{
		Job:     content.Job,
		Score:   clamp(score, 0, 100),
		Reasons: reasons,
		Factors: MatchFactors{Algorithm: AlgorithmHybrid, Hybrid: &factors},
	}
}
