package forest

import "fmt"

// MissingFeatureError reports a query that lacks an attribute the classifier
// needs.
type MissingFeatureError struct {
	Feature string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("forest: missing feature %q", e.Feature)
}
