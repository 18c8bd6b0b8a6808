package storage

// ApiStore defines the complete set of operations needed by the API and the settlement workers.
// It composes other interfaces to provide a clear boundary for the API's data access.
type ApiStore interface {
	SettlementStore
	OrderStore
	SubscriptionReader
	StoreDirectory
	EarningsReader
}
