package relevance

import (
	"math"
	"sync"

	"github.com/mailsift/mailsift/internal/core"
)

// Classifier is a multinomial naive Bayes model updated one labeled example
// at a time. Class 1 is "relevant" (validate), class 0 "irrelevant"
// (reject). It is not safe for concurrent use; UserModel serializes access.
type Classifier struct {
	alpha      float64
	classCount [2]float64
	featureSum [2]map[string]float64
}

// NewClassifier creates a classifier with Laplace smoothing.
func NewClassifier() *Classifier {
	return &Classifier{
		alpha: 1.0,
		featureSum: [2]map[string]float64{
			make(map[string]float64, len(core.FeatureNames)),
			make(map[string]float64, len(core.FeatureNames)),
		},
	}
}

// Learn performs one online update with the given feature map and label
// (1 validate, 0 reject).
func (c *Classifier) Learn(features map[string]float64, label int) {
	if label != 0 && label != 1 {
		return
	}
	c.classCount[label]++
	for _, name := range core.FeatureNames {
		c.featureSum[label][name] += features[name]
	}
}

// Fitted reports whether both classes have been observed at least once.
// Until then the learned log-probabilities are meaningless and weight
// recomputation must be skipped.
func (c *Classifier) Fitted() bool {
	return c.classCount[0] > 0 && c.classCount[1] > 0
}

// featureLogProb returns log P(feature | class) with Laplace smoothing.
func (c *Classifier) featureLogProb(class int) map[string]float64 {
	total := 0.0
	for _, name := range core.FeatureNames {
		total += c.featureSum[class][name]
	}
	denom := total + c.alpha*float64(len(core.FeatureNames))
	out := make(map[string]float64, len(core.FeatureNames))
	for _, name := range core.FeatureNames {
		out[name] = math.Log((c.featureSum[class][name] + c.alpha) / denom)
	}
	return out
}

// Weights derives per-feature weights as the normalized absolute difference
// of the learned log-probabilities between the two classes. The boolean is
// false while the classifier is unfit, in which case callers keep their
// prior weights. A fit classifier whose differences are all zero yields
// equal weights.
func (c *Classifier) Weights() (map[string]float64, bool) {
	if !c.Fitted() {
		return nil, false
	}
	relevant := c.featureLogProb(1)
	irrelevant := c.featureLogProb(0)

	diffs := make(map[string]float64, len(core.FeatureNames))
	total := 0.0
	for _, name := range core.FeatureNames {
		d := math.Abs(relevant[name] - irrelevant[name])
		diffs[name] = d
		total += d
	}
	if total == 0 {
		return core.EqualWeights(), true
	}
	for name := range diffs {
		diffs[name] /= total
	}
	return diffs, true
}

// UserModel pairs one user's classifier with its lock. Concurrent feedback
// events for the same user must not interleave partial fits.
type UserModel struct {
	mu         sync.Mutex
	classifier *Classifier
}

// Update locks the model, applies one example and returns the recomputed
// weights (ok is false when recomputation was skipped).
func (m *UserModel) Update(features map[string]float64, label int) (map[string]float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifier.Learn(features, label)
	return m.classifier.Weights()
}

// Registry holds one model per user. Models are created lazily and live for
// the process lifetime; users never share a classifier, so feedback from
// unrelated users never contends.
type Registry struct {
	mu     sync.Mutex
	models map[string]*UserModel
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*UserModel)}
}

// ForUser returns the user's model, creating it on first use.
func (r *Registry) ForUser(userID string) *UserModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	model, ok := r.models[userID]
	if !ok {
		model = &UserModel{classifier: NewClassifier()}
		r.models[userID] = model
	}
	return model
}
