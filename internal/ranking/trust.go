package ranking

// defaultTrust applies to sources without a curated entry.
const defaultTrust = 0.5

// TrustTable maps source names to a static reliability weight on [0,1].
// Curated from observed lead conversion per source family.
type TrustTable map[string]float64

// DefaultTrustTable returns the built-in source trust weights.
func DefaultTrustTable() TrustTable {
	return TrustTable{
		"marketplace": 0.9,
		"classifieds": 0.8,
		"forum":       0.7,
		"social":      0.6,
		"blog":        0.4,
		"aggregator":  0.4,
		"sandbox":     0.5,
	}
}

// Trust returns the weight for a source, falling back to the default
// for unknown sources.
func (t TrustTable) Trust(source string) float64 {
	if w, ok := t[source]; ok {
		return w
	}
	return defaultTrust
}
