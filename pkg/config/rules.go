package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the optional YAML override for the quality gate thresholds.
//
//	daily_revenue:
//	  min: 1000
//	  max: 5000000
//	missing_customer_ratio_max: 0.1
type Rules struct {
	DailyRevenue *RevenueBounds `yaml:"daily_revenue"`
	MissingMax   *float64       `yaml:"missing_customer_ratio_max"`
}

// RevenueBounds is the closed interval a day's cleaned revenue must fall in
type RevenueBounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// RuleError reports an unusable field in the rules file
type RuleError struct {
	Field   string
	Message string
}

func (e RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadRules reads a rules file. Unknown keys fail immediately so a typo
// never silently falls back to the environment thresholds.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rules Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := rules.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &rules, nil
}

func (r *Rules) validate() error {
	if r.DailyRevenue != nil && (!isFinite(r.DailyRevenue.Min) || !isFinite(r.DailyRevenue.Max)) {
		return RuleError{"daily_revenue", "min and max must be finite"}
	}
	if r.MissingMax != nil && !isFinite(*r.MissingMax) {
		return RuleError{"missing_customer_ratio_max", "must be finite"}
	}
	if r.DailyRevenue != nil && r.DailyRevenue.Min > r.DailyRevenue.Max {
		return RuleError{"daily_revenue", "min must not exceed max"}
	}
	if r.MissingMax != nil && (*r.MissingMax < 0 || *r.MissingMax > 1) {
		return RuleError{"missing_customer_ratio_max", "must be in [0, 1]"}
	}
	return nil
}

// Apply overwrites the thresholds the file sets and leaves the rest alone
func (r *Rules) Apply(q *QualityConfig) {
	if r.DailyRevenue != nil {
		q.DailyRevenueMin = r.DailyRevenue.Min
		q.DailyRevenueMax = r.DailyRevenue.Max
	}
	if r.MissingMax != nil {
		q.MissingCustomerMaxRatio = *r.MissingMax
	}
}
