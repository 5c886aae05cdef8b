package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textCandidates() []TextCandidate {
	return []TextCandidate{
		{ProductID: 1, Name: "Trà Đào Cam Sả", Score: 0.9},
		{ProductID: 2, Name: "Cà Phê Sữa", Score: 0.4},
		{ProductID: 3, Name: "Bạc Xỉu", Score: 0.1},
	}
}

func imageCandidates() []ImageCandidate {
	return []ImageCandidate{
		{ProductID: 2, Name: "Cà Phê Sữa", Distance: 0.2},
		{ProductID: 4, Name: "Trà Sen", Distance: 1.5},
	}
}

func TestCombineMBR_EmptyInputs(t *testing.T) {
	assert.Nil(t, CombineMBR(nil, nil, 0.5, 3, NormSoftmax))
	assert.Nil(t, CombineMBR(textCandidates(), imageCandidates(), 0.5, 0, NormSoftmax))
}

func TestCombineMBR_TextOnlyFallback(t *testing.T) {
	results := CombineMBR(textCandidates(), nil, 0.5, 2, NormSoftmax)
	require.Len(t, results, 2)

	// Highest text score wins when there is no image evidence.
	assert.Equal(t, int64(1), results[0].ProductID)
	assert.Equal(t, int64(2), results[1].ProductID)
	assert.Zero(t, results[0].ImageProb)
}

func TestCombineMBR_ImageOnlyFallback(t *testing.T) {
	results := CombineMBR(nil, imageCandidates(), 0.5, 3, NormSoftmax)
	require.Len(t, results, 2)

	// Closest image match wins when there is no text evidence.
	assert.Equal(t, int64(2), results[0].ProductID)
	assert.Equal(t, int64(4), results[1].ProductID)
	assert.Zero(t, results[0].TextProb)
}

func TestCombineMBR_BothModalitiesBeatSingle(t *testing.T) {
	// Product 2 is mid-pack on text but the closest image match; with a
	// balanced alpha the combined evidence should put it first.
	results := CombineMBR(textCandidates(), imageCandidates(), 0.5, 3, NormSoftmax)
	require.NotEmpty(t, results)

	assert.Equal(t, int64(2), results[0].ProductID)
	assert.Positive(t, results[0].TextProb)
	assert.Positive(t, results[0].ImageProb)
	// Text metadata survives the merge.
	assert.Equal(t, "Cà Phê Sữa", results[0].Name)
}

func TestCombineMBR_AlphaExtremes(t *testing.T) {
	text := textCandidates()
	image := imageCandidates()

	// alpha=0 ignores the image side entirely.
	textOnly := CombineMBR(text, image, 0, 5, NormSoftmax)
	assert.Equal(t, int64(1), textOnly[0].ProductID)

	// alpha=1 ignores the text side entirely.
	imageOnly := CombineMBR(text, image, 1, 5, NormSoftmax)
	assert.Equal(t, int64(2), imageOnly[0].ProductID)
}

func TestCombineMBR_RisksAreOrdered(t *testing.T) {
	results := CombineMBR(textCandidates(), imageCandidates(), 0.5, 5, NormSoftmax)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Risk, results[i].Risk)
	}
}

func TestCombineMBR_Deterministic(t *testing.T) {
	first := CombineMBR(textCandidates(), imageCandidates(), 0.5, 5, NormSoftmax)
	second := CombineMBR(textCandidates(), imageCandidates(), 0.5, 5, NormSoftmax)
	assert.Equal(t, first, second)
}

func TestCombineMBR_TruncatesToK(t *testing.T) {
	results := CombineMBR(textCandidates(), imageCandidates(), 0.5, 2, NormSoftmax)
	assert.Len(t, results, 2)
}

func TestNormalizeTextScores_Distributions(t *testing.T) {
	for _, strategy := range []Normalization{NormSoftmax, NormMinMax, NormZScore} {
		probs := normalizeTextScores(textCandidates(), strategy)
		require.Len(t, probs, 3, "strategy %s", strategy)

		sum := 0.0
		for _, p := range probs {
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "strategy %s", strategy)
		// Best score gets the largest probability under every strategy.
		assert.Greater(t, probs[0], probs[2], "strategy %s", strategy)
	}
}

func TestNormalizeTextScores_IdenticalScoresUniform(t *testing.T) {
	flat := []TextCandidate{{Score: 0.5}, {Score: 0.5}, {Score: 0.5}}
	for _, strategy := range []Normalization{NormSoftmax, NormMinMax, NormZScore} {
		probs := normalizeTextScores(flat, strategy)
		for _, p := range probs {
			assert.InDelta(t, 1.0/3, p, 1e-9, "strategy %s", strategy)
		}
	}
}

func TestNormalizeImageDistances(t *testing.T) {
	probs := normalizeImageDistances(imageCandidates())
	require.Len(t, probs, 2)

	sum := probs[0] + probs[1]
	assert.InDelta(t, 1.0, sum, 1e-9)
	// Closer image gets the larger probability.
	assert.Greater(t, probs[0], probs[1])
}

func TestNormalizeImageDistances_AllExactMatches(t *testing.T) {
	probs := normalizeImageDistances([]ImageCandidate{{Distance: 0}, {Distance: 0}})
	assert.InDelta(t, 0.5, probs[0], 1e-9)
	assert.InDelta(t, 0.5, probs[1], 1e-9)
}
