// Package universe holds the built-in instrument lists backing the
// dashboard. Lists are ordered by index rank; rank feeds the scheduler's
// priority score.
package universe

import (
	"fmt"

	"github.com/mkorobovv/trade-mirror/internal/common/domain"
)

const (
	ListNifty50 = "nifty50"
	ListMidCap  = "midcap"
)

// List returns a copy of the named list, truncated to customCount when
// customCount > 0.
func List(listID string, customCount int) ([]domain.Instrument, error) {
	var src []domain.Instrument

	switch listID {
	case ListNifty50:
		src = nifty50
	case ListMidCap:
		src = midCap
	default:
		return nil, fmt.Errorf("unknown instrument list %q", listID)
	}

	if customCount > 0 && customCount < len(src) {
		src = src[:customCount]
	}

	out := make([]domain.Instrument, len(src))
	copy(out, src)

	return out, nil
}

var nifty50 = []domain.Instrument{
	{Symbol: "RELIANCE", Name: "Reliance Industries", Sector: "Energy", Tier: 1},
	{Symbol: "TCS", Name: "Tata Consultancy Services", Sector: "IT", Tier: 1},
	{Symbol: "HDFCBANK", Name: "HDFC Bank", Sector: "Banking", Tier: 1},
	{Symbol: "ICICIBANK", Name: "ICICI Bank", Sector: "Banking", Tier: 1},
	{Symbol: "INFY", Name: "Infosys", Sector: "IT", Tier: 1},
	{Symbol: "HINDUNILVR", Name: "Hindustan Unilever", Sector: "FMCG", Tier: 1},
	{Symbol: "ITC", Name: "ITC", Sector: "FMCG", Tier: 1},
	{Symbol: "SBIN", Name: "State Bank of India", Sector: "Banking", Tier: 1},
	{Symbol: "BHARTIARTL", Name: "Bharti Airtel", Sector: "Telecom", Tier: 1},
	{Symbol: "KOTAKBANK", Name: "Kotak Mahindra Bank", Sector: "Banking", Tier: 1},
	{Symbol: "LT", Name: "Larsen & Toubro", Sector: "Infrastructure", Tier: 2},
	{Symbol: "AXISBANK", Name: "Axis Bank", Sector: "Banking", Tier: 2},
	{Symbol: "ASIANPAINT", Name: "Asian Paints", Sector: "Consumer", Tier: 2},
	{Symbol: "MARUTI", Name: "Maruti Suzuki", Sector: "Auto", Tier: 2},
	{Symbol: "HCLTECH", Name: "HCL Technologies", Sector: "IT", Tier: 2},
	{Symbol: "BAJFINANCE", Name: "Bajaj Finance", Sector: "Finance", Tier: 2},
	{Symbol: "WIPRO", Name: "Wipro", Sector: "IT", Tier: 2},
	{Symbol: "ULTRACEMCO", Name: "UltraTech Cement", Sector: "Cement", Tier: 2},
	{Symbol: "NESTLEIND", Name: "Nestle India", Sector: "FMCG", Tier: 2},
	{Symbol: "TITAN", Name: "Titan Company", Sector: "Consumer", Tier: 2},
	{Symbol: "SUNPHARMA", Name: "Sun Pharmaceutical", Sector: "Pharma", Tier: 2},
	{Symbol: "ONGC", Name: "Oil & Natural Gas Corp", Sector: "Energy", Tier: 2},
	{Symbol: "NTPC", Name: "NTPC", Sector: "Power", Tier: 2},
	{Symbol: "POWERGRID", Name: "Power Grid Corp", Sector: "Power", Tier: 2},
	{Symbol: "M&M", Name: "Mahindra & Mahindra", Sector: "Auto", Tier: 2},
	{Symbol: "TATAMOTORS", Name: "Tata Motors", Sector: "Auto", Tier: 3},
	{Symbol: "TATASTEEL", Name: "Tata Steel", Sector: "Metals", Tier: 3},
	{Symbol: "JSWSTEEL", Name: "JSW Steel", Sector: "Metals", Tier: 3},
	{Symbol: "ADANIENT", Name: "Adani Enterprises", Sector: "Infrastructure", Tier: 3},
	{Symbol: "ADANIPORTS", Name: "Adani Ports", Sector: "Infrastructure", Tier: 3},
	{Symbol: "COALINDIA", Name: "Coal India", Sector: "Energy", Tier: 3},
	{Symbol: "BAJAJFINSV", Name: "Bajaj Finserv", Sector: "Finance", Tier: 3},
	{Symbol: "GRASIM", Name: "Grasim Industries", Sector: "Cement", Tier: 3},
	{Symbol: "TECHM", Name: "Tech Mahindra", Sector: "IT", Tier: 3},
	{Symbol: "INDUSINDBK", Name: "IndusInd Bank", Sector: "Banking", Tier: 3},
	{Symbol: "HINDALCO", Name: "Hindalco Industries", Sector: "Metals", Tier: 3},
	{Symbol: "DRREDDY", Name: "Dr. Reddy's Laboratories", Sector: "Pharma", Tier: 3},
	{Symbol: "CIPLA", Name: "Cipla", Sector: "Pharma", Tier: 3},
	{Symbol: "EICHERMOT", Name: "Eicher Motors", Sector: "Auto", Tier: 3},
	{Symbol: "APOLLOHOSP", Name: "Apollo Hospitals", Sector: "Healthcare", Tier: 3},
	{Symbol: "BRITANNIA", Name: "Britannia Industries", Sector: "FMCG", Tier: 3},
	{Symbol: "DIVISLAB", Name: "Divi's Laboratories", Sector: "Pharma", Tier: 3},
	{Symbol: "HEROMOTOCO", Name: "Hero MotoCorp", Sector: "Auto", Tier: 3},
	{Symbol: "BAJAJ-AUTO", Name: "Bajaj Auto", Sector: "Auto", Tier: 3},
	{Symbol: "SHREECEM", Name: "Shree Cement", Sector: "Cement", Tier: 3},
	{Symbol: "UPL", Name: "UPL", Sector: "Chemicals", Tier: 3},
	{Symbol: "SBILIFE", Name: "SBI Life Insurance", Sector: "Finance", Tier: 3},
	{Symbol: "HDFCLIFE", Name: "HDFC Life Insurance", Sector: "Finance", Tier: 3},
	{Symbol: "BPCL", Name: "Bharat Petroleum", Sector: "Energy", Tier: 3},
	{Symbol: "TATACONSUM", Name: "Tata Consumer Products", Sector: "FMCG", Tier: 3},
}

var midCap = []domain.Instrument{
	{Symbol: "TRENT", Name: "Trent", Sector: "Consumer", Tier: 2},
	{Symbol: "ZOMATO", Name: "Zomato", Sector: "Consumer", Tier: 2},
	{Symbol: "DLF", Name: "DLF", Sector: "Realty", Tier: 2},
	{Symbol: "PIDILITIND", Name: "Pidilite Industries", Sector: "Chemicals", Tier: 2},
	{Symbol: "BANKBARODA", Name: "Bank of Baroda", Sector: "Banking", Tier: 2},
	{Symbol: "PNB", Name: "Punjab National Bank", Sector: "Banking", Tier: 3},
	{Symbol: "CANBK", Name: "Canara Bank", Sector: "Banking", Tier: 3},
	{Symbol: "IRCTC", Name: "IRCTC", Sector: "Consumer", Tier: 3},
	{Symbol: "VEDL", Name: "Vedanta", Sector: "Metals", Tier: 3},
	{Symbol: "LUPIN", Name: "Lupin", Sector: "Pharma", Tier: 3},
	{Symbol: "AUROPHARMA", Name: "Aurobindo Pharma", Sector: "Pharma", Tier: 3},
	{Symbol: "GODREJCP", Name: "Godrej Consumer Products", Sector: "FMCG", Tier: 3},
	{Symbol: "HAVELLS", Name: "Havells India", Sector: "Consumer", Tier: 3},
	{Symbol: "SIEMENS", Name: "Siemens", Sector: "Industrials", Tier: 3},
	{Symbol: "ABB", Name: "ABB India", Sector: "Industrials", Tier: 3},
	{Symbol: "BOSCHLTD", Name: "Bosch", Sector: "Auto", Tier: 3},
	{Symbol: "MUTHOOTFIN", Name: "Muthoot Finance", Sector: "Finance", Tier: 3},
	{Symbol: "INDIGO", Name: "InterGlobe Aviation", Sector: "Aviation", Tier: 3},
	{Symbol: "NAUKRI", Name: "Info Edge", Sector: "IT", Tier: 3},
	{Symbol: "PAYTM", Name: "One97 Communications", Sector: "Finance", Tier: 3},
}
