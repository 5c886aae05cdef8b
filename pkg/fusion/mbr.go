// Package fusion merges text and image retrieval results by minimum
// Bayes risk: each candidate's risk is its expected loss under the
// normalized relevance distributions of both modalities, weighted by
// alpha.
package fusion

import (
	"math"
	"sort"
)

// Normalization selects how raw text scores become a probability
// distribution.
type Normalization string

const (
	// NormSoftmax applies softmax with max-subtraction for stability.
	NormSoftmax Normalization = "softmax"
	// NormMinMax rescales scores to [0,1] and normalizes by their sum.
	NormMinMax Normalization = "minmax"
	// NormZScore standardizes scores before softmax, flattening the
	// distribution when scores are tightly clustered.
	NormZScore Normalization = "zscore"
)

// TextCandidate is a product surfaced by text retrieval.
// Score is a relevance score where higher is better.
type TextCandidate struct {
	ProductID     int64
	Name          string
	Description   string
	VariantPrices string
	Score         float64
}

// ImageCandidate is a product surfaced by image retrieval.
// Distance is an L2 distance where lower is better.
type ImageCandidate struct {
	ProductID int64
	Name      string
	Distance  float64
}

// Result is a fused candidate, lowest risk first.
type Result struct {
	ProductID     int64
	Name          string
	Description   string
	VariantPrices string
	// Risk is the expected loss: alpha*(1-P_image) + (1-alpha)*(1-P_text).
	Risk float64
	// TextProb and ImageProb are the normalized relevance probabilities,
	// zero when the modality did not surface the product.
	TextProb  float64
	ImageProb float64
}

// CombineMBR fuses text and image candidates and returns at most k
// results ordered by ascending risk. Alpha weights the image modality:
// 1.0 trusts the image only, 0.0 trusts text only.
//
// Degenerate inputs fall back to single-modality ranking: when one list
// is empty the other's top-k is returned with risk computed against a
// zero probability for the missing modality.
func CombineMBR(text []TextCandidate, image []ImageCandidate, alpha float64, k int, strategy Normalization) []Result {
	if k < 1 || (len(text) == 0 && len(image) == 0) {
		return nil
	}

	textProbs := normalizeTextScores(text, strategy)
	imageProbs := normalizeImageDistances(image)

	// Union keyed by product, text side first so fused entries keep the
	// richer text metadata and ties resolve deterministically.
	var results []Result
	seen := make(map[int64]int)

	for i, c := range text {
		seen[c.ProductID] = len(results)
		results = append(results, Result{
			ProductID:     c.ProductID,
			Name:          c.Name,
			Description:   c.Description,
			VariantPrices: c.VariantPrices,
			TextProb:      textProbs[i],
		})
	}

	for i, c := range image {
		if pos, ok := seen[c.ProductID]; ok {
			if imageProbs[i] > results[pos].ImageProb {
				results[pos].ImageProb = imageProbs[i]
			}
			continue
		}
		seen[c.ProductID] = len(results)
		results = append(results, Result{
			ProductID: c.ProductID,
			Name:      c.Name,
			ImageProb: imageProbs[i],
		})
	}

	for i := range results {
		results[i].Risk = alpha*(1-results[i].ImageProb) + (1-alpha)*(1-results[i].TextProb)
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Risk < results[b].Risk
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// normalizeTextScores turns relevance scores into a probability
// distribution using the configured strategy.
func normalizeTextScores(text []TextCandidate, strategy Normalization) []float64 {
	if len(text) == 0 {
		return nil
	}

	scores := make([]float64, len(text))
	for i, c := range text {
		scores[i] = c.Score
	}

	switch strategy {
	case NormMinMax:
		return minMaxNormalize(scores)
	case NormZScore:
		return softmax(zScores(scores))
	default:
		return softmax(scores)
	}
}

// normalizeImageDistances converts L2 distances into a probability
// distribution: p_i = exp(-d_i / d_max), sum-normalized. The scale by
// the maximum distance keeps the exponent in a usable range regardless
// of the feature space's magnitude.
func normalizeImageDistances(image []ImageCandidate) []float64 {
	if len(image) == 0 {
		return nil
	}

	maxDist := 0.0
	for _, c := range image {
		if c.Distance > maxDist {
			maxDist = c.Distance
		}
	}
	if maxDist == 0 {
		// All distances zero: exact matches, uniform distribution.
		probs := make([]float64, len(image))
		for i := range probs {
			probs[i] = 1.0 / float64(len(image))
		}
		return probs
	}

	probs := make([]float64, len(image))
	sum := 0.0
	for i, c := range image {
		probs[i] = math.Exp(-c.Distance / maxDist)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// softmax with max-subtraction for numerical stability.
func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	probs := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// minMaxNormalize rescales to [0,1] then normalizes by the sum.
// Identical scores yield a uniform distribution.
func minMaxNormalize(scores []float64) []float64 {
	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	probs := make([]float64, len(scores))
	if maxScore == minScore {
		for i := range probs {
			probs[i] = 1.0 / float64(len(scores))
		}
		return probs
	}

	sum := 0.0
	for i, s := range scores {
		probs[i] = (s - minScore) / (maxScore - minScore)
		sum += probs[i]
	}
	if sum == 0 {
		for i := range probs {
			probs[i] = 1.0 / float64(len(scores))
		}
		return probs
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// zScores standardizes scores to zero mean and unit variance.
// Zero variance maps everything to zero.
func zScores(scores []float64) []float64 {
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(scores))

	out := make([]float64, len(scores))
	if variance == 0 {
		return out
	}

	std := math.Sqrt(variance)
	for i, s := range scores {
		out[i] = (s - mean) / std
	}
	return out
}
