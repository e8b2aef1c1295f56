package quality

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/config"
)

// Judge applies the thresholds to a day's aggregate. A day passes only when
// the revenue lies within [min, max] and the missing ratio does not exceed
// the maximum; every violation is described in the returned message.
func Judge(agg contracts.DailyAggregate, thresholds config.QualityConfig) (contracts.QualityStatus, string) {
	var violations []string

	min := decimal.NewFromFloat(thresholds.DailyRevenueMin)
	max := decimal.NewFromFloat(thresholds.DailyRevenueMax)
	if agg.DailyTotal.LessThan(min) || agg.DailyTotal.GreaterThan(max) {
		violations = append(violations, revenueViolation(agg.DailyTotal, min, max))
	}

	if ratio := agg.MissingRatio(); ratio > thresholds.MissingCustomerMaxRatio {
		violations = append(violations, missingViolation(ratio, thresholds.MissingCustomerMaxRatio))
	}

	if len(violations) == 0 {
		return contracts.StatusPass, ""
	}
	return contracts.StatusFail, strings.Join(violations, alertSeparator)
}
