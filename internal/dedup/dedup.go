// Package dedup collapses aggregated raw signals into a unique set
// using three phases: exact URL match, contact identity match, and
// semantic near-duplicate match.
package dedup

import (
	"fmt"

	"github.com/jonesrussell/leadscout/internal/domain"
	"github.com/jonesrussell/leadscout/internal/logger"
)

const (
	// minPhoneDigits is the minimum digit count for a phone number to
	// count as an identity.
	minPhoneDigits = 6

	reasonExactURL = "exact URL duplicate"
	reasonPhone    = "duplicate contact phone"
)

// Result holds the survivors and the rejected signals with reasons.
type Result struct {
	Unique   []domain.Signal
	Rejected []domain.RejectedSignal
}

// Engine applies the three dedup phases in order, each phase operating
// only on the survivors of the previous one.
type Engine struct {
	logger     logger.Interface
	similarity Similarity
	threshold  float64
}

// NewEngine creates a dedup engine. A nil similarity falls back to
// token overlap.
func NewEngine(log logger.Interface, similarity Similarity, threshold float64) *Engine {
	if similarity == nil {
		similarity = TokenOverlap{}
	}
	return &Engine{
		logger:     log,
		similarity: similarity,
		threshold:  threshold,
	}
}

// Dedupe collapses signals. First seen wins throughout, so for a fixed
// input ordering the output is deterministic.
func (e *Engine) Dedupe(signals []domain.Signal) Result {
	res := Result{}

	urlSurvivors := e.dedupeByURL(signals, &res)
	phoneSurvivors := e.dedupeByPhone(urlSurvivors, &res)
	res.Unique = e.dedupeSemantic(phoneSurvivors, &res)

	if len(res.Rejected) > 0 {
		e.logger.Debug("Deduplication complete",
			logger.Int("input", len(signals)),
			logger.Int("unique", len(res.Unique)),
			logger.Int("rejected", len(res.Rejected)),
		)
	}

	return res
}

// dedupeByURL collapses signals sharing an identical source URL.
func (e *Engine) dedupeByURL(signals []domain.Signal, res *Result) []domain.Signal {
	seen := make(map[string]struct{}, len(signals))
	var survivors []domain.Signal

	for _, sig := range signals {
		if sig.URL != "" {
			if _, dup := seen[sig.URL]; dup {
				res.Rejected = append(res.Rejected, domain.RejectedSignal{
					Signal: sig,
					Reason: reasonExactURL,
				})
				continue
			}
			seen[sig.URL] = struct{}{}
		}
		survivors = append(survivors, sig)
	}

	return survivors
}

// dedupeByPhone collapses signals whose normalized contact phone
// matches an earlier signal, regardless of URL. Short fragments are not
// treated as identities.
func (e *Engine) dedupeByPhone(signals []domain.Signal, res *Result) []domain.Signal {
	seen := make(map[string]struct{})
	var survivors []domain.Signal

	for _, sig := range signals {
		phone := NormalizePhone(sig.ContactPhone)
		if len(phone) >= minPhoneDigits {
			if _, dup := seen[phone]; dup {
				res.Rejected = append(res.Rejected, domain.RejectedSignal{
					Signal: sig,
					Reason: reasonPhone,
				})
				continue
			}
			seen[phone] = struct{}{}
		}
		survivors = append(survivors, sig)
	}

	return survivors
}

// dedupeSemantic collapses near-duplicate texts. Transitive-safe: once
// index j is marked a duplicate of i, j is excluded from further
// comparisons, so output does not depend on comparison order for a
// fixed input ordering.
func (e *Engine) dedupeSemantic(signals []domain.Signal, res *Result) []domain.Signal {
	duplicate := make([]bool, len(signals))

	for i := range signals {
		if duplicate[i] {
			continue
		}
		for j := i + 1; j < len(signals); j++ {
			if duplicate[j] {
				continue
			}
			score := e.similarity.Score(signals[i].Text, signals[j].Text)
			if score >= e.threshold {
				duplicate[j] = true
				res.Rejected = append(res.Rejected, domain.RejectedSignal{
					Signal: signals[j],
					Reason: fmt.Sprintf("semantic duplicate (score=%.2f)", score),
				})
			}
		}
	}

	var unique []domain.Signal
	for i, sig := range signals {
		if !duplicate[i] {
			unique = append(unique, sig)
		}
	}

	return unique
}
