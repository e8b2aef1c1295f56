package quality

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AlertPrefix is prepended to the alert message handed to the notifier
const AlertPrefix = "\u26a0\ufe0f DQ Alert: "

// alertSeparator joins individual violations into one alert message
const alertSeparator = " | "

func revenueViolation(total, min, max decimal.Decimal) string {
	return fmt.Sprintf("daily_total=%s out of range [%s,%s]",
		groupThousands(total.StringFixed(2)),
		groupThousands(min.StringFixed(0)),
		groupThousands(max.StringFixed(0)))
}

func missingViolation(ratio, max float64) string {
	return fmt.Sprintf("missing_customer_id_ratio=%s > %s", percent(ratio), percent(max))
}

// percent renders a ratio as a percentage with two decimals, 0.02 → "2.00%"
func percent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// groupThousands inserts commas into the integer part of a fixed-point
// number: "5000000" → "5,000,000", "-1234.50" → "-1,234.50"
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if len(whole) > 3 {
		var b strings.Builder
		lead := len(whole) % 3
		if lead > 0 {
			b.WriteString(whole[:lead])
		}
		for i := lead; i < len(whole); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(whole[i : i+3])
		}
		whole = b.String()
	}

	if hasFrac {
		return sign + whole + "." + frac
	}
	return sign + whole
}
