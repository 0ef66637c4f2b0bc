package model

import "github.com/shopspring/decimal"

// Stats is the platform-wide aggregate shown to administrators.
type Stats struct {
	Students          int64
	AdvancesTotal     int64
	AdvancesPending   int64
	AdvancesActive    int64
	AdvancesCompleted int64
	AdvancesRejected  int64
	AdvancesDefaulted int64
	FundsDisbursed    decimal.Decimal // Σ amount of active and completed advances
	TotalSavings      decimal.Decimal // Σ current_amount over all buckets
	RepaymentsPaid    int64
	RepaymentsPending int64
	RepaymentsOverdue int64
	CollectionRate    decimal.Decimal // paid / (paid + pending) * 100, one decimal
}
