package cache

// HoldingsKey identifies one user's derived holdings view.
type HoldingsKey struct {
	UserID int64
}

func HoldingsFor(userID int64) HoldingsKey {
	return HoldingsKey{UserID: userID}
}

// HistoryKey identifies one user's transaction history view.
type HistoryKey struct {
	UserID int64
}

func HistoryFor(userID int64) HistoryKey {
	return HistoryKey{UserID: userID}
}
