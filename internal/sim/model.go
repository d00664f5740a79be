package sim

// Model selects one of the five Johansen cointegration model specifications.
// The set is closed: trial generation dispatches over it with a plain switch,
// and the selector is stored as a single byte in the dataset header.
type Model uint8

const (
	// NoInterceptNoTrend: mu_t = 0
	NoInterceptNoTrend Model = iota
	// InterceptInCoint: intercept, no trend, intercept inside the
	// cointegrating relation.
	InterceptInCoint
	// InterceptNoTrend: intercept not fully explained by cointegration.
	InterceptNoTrend
	// InterceptTrendInCoint: intercept and trend, trend inside the
	// cointegrating relation.
	InterceptTrendInCoint
	// InterceptTrend: neither intercept nor trend fully explained by
	// cointegration.
	InterceptTrend

	numModels = 5
)

// ModelFromNumber maps a header byte back to a model selector.
func ModelFromNumber(n uint8) (Model, bool) {
	if n >= numModels {
		return 0, false
	}
	return Model(n), true
}

// AllModels returns the full model set in selector order.
func AllModels() []Model {
	return []Model{NoInterceptNoTrend, InterceptInCoint, InterceptNoTrend,
		InterceptTrendInCoint, InterceptTrend}
}

func (m Model) String() string {
	switch m {
	case NoInterceptNoTrend:
		return "no intercept, no trend"
	case InterceptInCoint:
		return "intercept, no trend, intercept in cointegration"
	case InterceptNoTrend:
		return "intercept, no trend, intercept not fully explained by cointegration"
	case InterceptTrendInCoint:
		return "intercept, trend, trend in cointegration"
	case InterceptTrend:
		return "intercept, trend, intercept and trend not fully explained by cointegration"
	default:
		return "unknown model"
	}
}

// HasIntercept reports whether the model carries an intercept term.
func (m Model) HasIntercept() bool { return m != NoInterceptNoTrend }

// HasTrend reports whether the model carries a trend term.
func (m Model) HasTrend() bool {
	return m == InterceptTrendInCoint || m == InterceptTrend
}

// ValuesPerTrial returns the number of eigenvalues one trial produces. The
// restricted models augment the system with one extra component.
func (m Model) ValuesPerTrial(dim int) int {
	if m == InterceptInCoint || m == InterceptTrendInCoint {
		return dim + 1
	}
	return dim
}
