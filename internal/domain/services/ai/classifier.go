package ai

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Classifier estimates the probability that a transcript is a scam.
// Implementations may fail; callers treat a failure as "no model signal".
type Classifier interface {
	PredictProba(text string) (float64, error)
}

var (
	// ErrClassifierNotTrained is returned when predicting with an empty model
	ErrClassifierNotTrained = errors.New("classifier not trained")

	// ErrNoEvidence is returned when text shares no feature with the
	// vocabulary. The model would only echo its class prior, so callers
	// treat this as "no model signal" rather than as a failure.
	ErrNoEvidence = errors.New("no known features in text")
)

// LabeledExample is one training sample for the embedded classifier
type LabeledExample struct {
	Text string
	Scam bool
}

// DefaultTrainingSet is the fixed sample set the embedded model is fit on.
// It is not user data and is not configurable at runtime.
var DefaultTrainingSet = []LabeledExample{
	{Text: "Your account is blocked, share OTP to verify", Scam: true},
	{Text: "Please share your OTP and account number", Scam: true},
	{Text: "We need immediate transfer to lift the hold", Scam: true},
	{Text: "This is a bank alert about your transaction", Scam: true},
	{Text: "Hello, I'm calling to confirm your appointment", Scam: false},
	{Text: "Reminder: your electricity bill is due", Scam: false},
	{Text: "Hi, this is a friend calling to check in", Scam: false},
}

// ClassifierConfig controls training of the embedded model
type ClassifierConfig struct {
	Iterations  int     // gradient descent steps (default: 500)
	LearnRate   float64 // step size (default: 0.5)
	C           float64 // inverse L2 regularisation strength (default: 1.0)
	MaxFeatures int     // vocabulary cap (default: 2000)
}

// DefaultClassifierConfig returns default configuration
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Iterations:  500,
		LearnRate:   0.5,
		C:           1.0,
		MaxFeatures: 2000,
	}
}

// TextClassifier is a TF-IDF (word unigrams and bigrams) logistic
// regression model. It is immutable once TrainClassifier returns it.
type TextClassifier struct {
	vocab   map[string]int
	idf     []float64
	weights []float64
	bias    float64
}

// feature is one non-zero entry of a sparse vector
type feature struct {
	idx int
	val float64
}

// sparseVec holds non-zero features ordered by index, so sums over it are
// evaluated in a fixed order.
type sparseVec []feature

// tokenPattern keeps words of two or more word characters
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// TrainDefaultClassifier fits the model on DefaultTrainingSet
func TrainDefaultClassifier(cfg ClassifierConfig) (*TextClassifier, error) {
	return TrainClassifier(DefaultTrainingSet, cfg)
}

// TrainClassifier fits a TextClassifier. Training is deterministic: the
// same examples and config always give the same model.
func TrainClassifier(examples []LabeledExample, cfg ClassifierConfig) (*TextClassifier, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("no training examples")
	}
	defaults := DefaultClassifierConfig()
	if cfg.Iterations <= 0 {
		cfg.Iterations = defaults.Iterations
	}
	if cfg.LearnRate <= 0 {
		cfg.LearnRate = defaults.LearnRate
	}
	if cfg.C <= 0 {
		cfg.C = defaults.C
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = defaults.MaxFeatures
	}

	docs := make([][]string, len(examples))
	var hasScam, hasBenign bool
	for i, ex := range examples {
		docs[i] = ngrams(ex.Text)
		if ex.Scam {
			hasScam = true
		} else {
			hasBenign = true
		}
	}
	if !hasScam || !hasBenign {
		return nil, fmt.Errorf("training set needs both classes")
	}

	c := &TextClassifier{}
	c.buildVocabulary(docs, cfg.MaxFeatures)
	if len(c.vocab) == 0 {
		return nil, fmt.Errorf("training set produced an empty vocabulary")
	}

	vectors := make([]sparseVec, len(docs))
	for i, d := range docs {
		vectors[i] = c.vectorize(d)
	}

	c.weights = make([]float64, len(c.vocab))
	grad := make([]float64, len(c.vocab))
	for iter := 0; iter < cfg.Iterations; iter++ {
		for j := range grad {
			grad[j] = c.weights[j] // L2 term
		}
		var gradBias float64
		for i, x := range vectors {
			y := 0.0
			if examples[i].Scam {
				y = 1.0
			}
			diff := cfg.C * (sigmoid(c.score(x)) - y)
			for _, f := range x {
				grad[f.idx] += diff * f.val
			}
			gradBias += diff
		}
		for j := range c.weights {
			c.weights[j] -= cfg.LearnRate * grad[j] / float64(len(vectors))
		}
		c.bias -= cfg.LearnRate * gradBias / float64(len(vectors))
	}

	return c, nil
}

// PredictProba returns P(scam | text)
func (c *TextClassifier) PredictProba(text string) (float64, error) {
	if c == nil || len(c.weights) == 0 {
		return 0, ErrClassifierNotTrained
	}
	x := c.vectorize(ngrams(text))
	if len(x) == 0 {
		return 0, ErrNoEvidence
	}
	p := sigmoid(c.score(x))
	if math.IsNaN(p) {
		return 0, fmt.Errorf("classifier produced NaN")
	}
	return p, nil
}

// VocabularySize returns the number of features
func (c *TextClassifier) VocabularySize() int {
	if c == nil {
		return 0
	}
	return len(c.vocab)
}

// buildVocabulary keeps the MaxFeatures most frequent terms (ties broken
// alphabetically) and computes smoothed IDF weights.
func (c *TextClassifier) buildVocabulary(docs [][]string, maxFeatures int) {
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]bool)
		for _, t := range d {
			termFreq[t]++
			if !seen[t] {
				docFreq[t]++
				seen[t] = true
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	c.vocab = make(map[string]int, len(terms))
	c.idf = make([]float64, len(terms))
	for i, t := range terms {
		c.vocab[t] = i
		c.idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
}

// vectorize turns n-grams into an L2-normalised TF-IDF vector
func (c *TextClassifier) vectorize(grams []string) sparseVec {
	counts := make(map[int]float64)
	for _, g := range grams {
		if idx, ok := c.vocab[g]; ok {
			counts[idx]++
		}
	}

	vec := make(sparseVec, 0, len(counts))
	for idx, tf := range counts {
		vec = append(vec, feature{idx: idx, val: tf * c.idf[idx]})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].idx < vec[j].idx })

	var norm float64
	for _, f := range vec {
		norm += f.val * f.val
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i].val /= norm
		}
	}
	return vec
}

func (c *TextClassifier) score(x sparseVec) float64 {
	s := c.bias
	for _, f := range x {
		s += c.weights[f.idx] * f.val
	}
	return s
}

// ngrams returns lowercase word unigrams followed by bigrams
func ngrams(text string) []string {
	tokens := tokenPattern.FindAllString(normalizeText(text), -1)
	grams := make([]string, 0, 2*len(tokens))
	grams = append(grams, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+2], " "))
	}
	return grams
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
