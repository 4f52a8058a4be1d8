package ports

// RegimeClassifier labels the market regime for a symbol.
type RegimeClassifier interface {
	// IsNeutral reports whether trailing volatility is low enough for
	// mean-reversion entries. Fails open: insufficient history is neutral.
	IsNeutral(symbol string) bool
}
