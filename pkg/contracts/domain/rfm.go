package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Segment is an RFM customer segment
type Segment string

const (
	SegmentChampions          Segment = "Champions"
	SegmentLoyalCustomers     Segment = "Loyal Customers"
	SegmentPromisingCustomers Segment = "Promising Customers"
	SegmentAtRiskCustomers    Segment = "At Risk Customers"
	SegmentCustomersToWinBack Segment = "Customers to Win Back"
	SegmentUnclassified       Segment = "Unclassified"
)

// SegmentOrder is the fixed reporting order of segments
var SegmentOrder = []Segment{
	SegmentChampions,
	SegmentLoyalCustomers,
	SegmentPromisingCustomers,
	SegmentAtRiskCustomers,
	SegmentCustomersToWinBack,
	SegmentUnclassified,
}

// RFMRecord is the recency/frequency/monetary profile of one customer.
// Scores are zero when the population was too small to score.
type RFMRecord struct {
	CustomerID  string          `json:"customer_id"`
	RecencyDays int             `json:"recency_days"`
	Frequency   int             `json:"frequency"`
	Monetary    decimal.Decimal `json:"monetary"`
	RScore      int             `json:"r_score"`
	FScore      int             `json:"f_score"`
	MScore      int             `json:"m_score"`
	Total       int             `json:"total"`
	Segment     Segment         `json:"segment"`
}

// SegmentCount is the number of customers in one segment
type SegmentCount struct {
	Segment   Segment `json:"segment"`
	Customers int     `json:"customers"`
}

// RFMResult is the output of a segmentation run
type RFMResult struct {
	Snapshot     time.Time      `json:"snapshot"`
	Scored       bool           `json:"scored"`
	Records      []RFMRecord    `json:"records"`
	Distribution []SegmentCount `json:"distribution"`
}
