// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"time"

	"github.com/stockparfait/macro/series"
	"github.com/stockparfait/macro/source"
	"github.com/stockparfait/macro/table"
)

// Series names, also used as task names and metric labels.
const (
	FX       = "fx"
	CPI      = "cpi"
	Interest = "interest"
)

func durationPtr(d time.Duration) *time.Duration { return &d }
func boolPtr(b bool) *bool                       { return &b }

// DefaultFX is the Bank of Thailand monthly average exchange rate, fetched in
// a single call for the whole range.
var DefaultFX = SeriesConfig{
	EndpointURL:        "https://gateway.api.bot.or.th/Stat-ExchangeRate/v2/MONTHLY_AVG_EXG_RATE/",
	CredentialEnv:      "BOT_API_KEY",
	OutputPath:         "fx_data.csv",
	PacingDelay:        durationPtr(0),
	Timeout:            30 * time.Second,
	Auth:               string(source.AuthHeader),
	Split:              SplitNone,
	InsecureSkipVerify: boolPtr(true),
	Destination:        "fx_data",
}

// DefaultCPI is the Ministry of Commerce headline consumer price index for the
// whole country. The provider's certificate chain does not verify.
var DefaultCPI = SeriesConfig{
	EndpointURL:        "https://dataapi.moc.go.th/cpiu-indexes",
	OutputPath:         "cpi.csv",
	PacingDelay:        durationPtr(0),
	Timeout:            30 * time.Second,
	Auth:               string(source.AuthNone),
	Split:              SplitNone,
	InsecureSkipVerify: boolPtr(true),
	Params: map[string]string{
		"region_id": "5",
		"index_id":  "0000000000000000",
	},
}

// DefaultInterest is the Bank of Thailand average loan rates, daily data
// fetched one month at a time.
var DefaultInterest = SeriesConfig{
	EndpointURL:   "https://gateway.api.bot.or.th/LoanRate/v2/avg_loan_rate/",
	CredentialEnv: "BOT_API_KEY",
	OutputPath:    "interest.csv",
	PacingDelay:   durationPtr(time.Second),
	Timeout:       30 * time.Second,
	Auth:          string(source.AuthHeader),
	Split:         SplitMonthly,
}

// FXSchema keeps one row per currency per month.
var FXSchema = series.Schema{
	Drop:      []string{"currency_name_eng"},
	Numeric:   []string{"buying_sight", "buying_transfer", "selling", "mid_rate"},
	Key:       series.KeySpec{Field: "period"},
	KeyColumn: "period",
	Partition: []string{"currency_id"},
}

// CPISchema derives the month from the year and month fields.
var CPISchema = series.Schema{
	Drop:      []string{"index_id", "index_description", "region_id", "region_name"},
	Columns:   []string{"base_year", "price_index", "mom", "yoy", "aoa"},
	Numeric:   []string{"price_index", "mom", "yoy", "aoa"},
	Key:       series.KeySpec{YearField: "year", MonthField: "month"},
	KeyColumn: "year_month",
}

// InterestAggregation averages daily loan rates per month.
var InterestAggregation = series.AggregateSpec{
	Timestamp: "period",
	Numeric: []string{
		"mor", "mlr", "mrr", "ceiling_rate", "default_rate",
		"creditcard_min", "creditcard_max"},
	KeyColumn: "year_month",
}

// MergeKey joins CPI and interest rates.
const MergeKey = "year_month"

// MergeMapping is the column layout of the merged table.
var MergeMapping = series.Mapping{
	{Source: "base_year", Target: "base_year"},
	{Source: "price_index", Target: "price_index"},
	{Source: "mom", Target: "mon"},
	{Source: "yoy", Target: "yoy"},
	{Source: "aoa", Target: "aoa"},
	{Source: "year_month", Target: "year_month"},
	{Source: "mor", Target: "mor"},
	{Source: "mlr", Target: "mlr"},
	{Source: "mrr", Target: "mrr"},
	{Source: "ceiling_rate", Target: "ceiling_rate"},
	{Source: "default_rate", Target: "default_rate"},
	{Source: "creditcard_min", Target: "creditcard_min"},
	{Source: "creditcard_max", Target: "creditcard_max"},
}

// definition binds a series' configuration to its request conventions and
// table construction.
type definition struct {
	Name     string
	Config   *SeriesConfig
	Endpoint source.Endpoint
	Extract  source.Extractor
	Build    func(records []source.Record) (*table.Table, series.Stats, error)
}

func (c *Config) definitions() []definition {
	return []definition{
		{
			Name:     FX,
			Config:   &c.FX,
			Endpoint: c.FX.endpoint("start_period", "end_period", "2006-01"),
			Extract:  source.DetailExtractor,
			Build: func(records []source.Record) (*table.Table, series.Stats, error) {
				return series.Normalize(records, FXSchema)
			},
		},
		{
			Name:     CPI,
			Config:   &c.CPI,
			Endpoint: c.CPI.endpoint("from_year", "to_year", "2006"),
			Extract:  source.ListExtractor,
			Build: func(records []source.Record) (*table.Table, series.Stats, error) {
				return series.Normalize(records, CPISchema)
			},
		},
		{
			Name:     Interest,
			Config:   &c.Interest,
			Endpoint: c.Interest.endpoint("start_period", "end_period", "2006-01-02"),
			Extract:  source.DetailExtractor,
			Build: func(records []source.Record) (*table.Table, series.Stats, error) {
				return series.Aggregate(records, InterestAggregation)
			},
		},
	}
}

func (c *Config) definition(name string) (definition, bool) {
	for _, d := range c.definitions() {
		if d.Name == name {
			return d, true
		}
	}
	return definition{}, false
}
