package merge

// Strategy is the policy for ordering hits from independently queried
// collections into one list.
type Strategy string

// Merge strategy constants.
const (
	// Relevance orders all hits by weighted normalized score.
	Relevance Strategy = "relevance"
	// CollectionWeighted orders identically to Relevance; the two differ only
	// in which score field a consumer displays. The shared ordering is
	// deliberate and must not silently diverge.
	CollectionWeighted Strategy = "collection-weighted"
	// RoundRobin interleaves collections in weight-descending order, one hit
	// from each in turn, skipping exhausted collections.
	RoundRobin Strategy = "round-robin"
	// CollectionPriority emits all hits of the highest-weight collection
	// before any hit of the next.
	CollectionPriority Strategy = "collection-priority"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	switch s {
	case Relevance, CollectionWeighted, RoundRobin, CollectionPriority:
		return true
	}
	return false
}
