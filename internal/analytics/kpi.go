package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"retailpulse/pkg/contracts/domain"
)

// ComputeKPIs derives the headline figures from a partition. When there are
// no sale orders the average basket is left nil and ErrDivisionByZero is
// returned with the otherwise complete KPIs.
func ComputeKPIs(p Partition) (domain.KPIs, error) {
	revenue, _ := sumRevenue(p.Sales)
	cancelledValue, cancelledUnits := sumRevenue(p.Cancellations)
	returnedValue, returnedUnits := sumRevenue(p.Returns)

	kpis := domain.KPIs{
		TotalRevenue:   revenue,
		Orders:         distinctInvoices(p.Sales),
		Customers:      distinctCustomers(p.Sales),
		Cancellations:  distinctInvoices(p.Cancellations),
		CancelledUnits: abs64(cancelledUnits),
		CancelledValue: cancelledValue.Abs(),
		Returns:        distinctInvoices(p.Returns),
		ReturnedUnits:  abs64(returnedUnits),
		ReturnedValue:  returnedValue.Abs(),
		Unclassified:   len(p.Unclassified),
	}

	if kpis.Orders == 0 {
		return kpis, fmt.Errorf("average basket: %w", ErrDivisionByZero)
	}
	basket := revenue.Div(decimal.NewFromInt(int64(kpis.Orders)))
	kpis.AverageBasket = &basket
	return kpis, nil
}

// ComputeReturnRates expresses returns as a share of sale revenue, of all
// invoices and of all customers. A rate is nil when its denominator is zero.
func ComputeReturnRates(p Partition) domain.ReturnRates {
	var rates domain.ReturnRates
	classified := p.Classified()

	salesRevenue, _ := sumRevenue(p.Sales)
	returnedValue, _ := sumRevenue(p.Returns)
	if salesRevenue.IsPositive() {
		v := returnedValue.Abs().Div(salesRevenue).Mul(hundred).InexactFloat64()
		rates.ByValuePct = &v
	}

	if total := distinctInvoices(classified); total > 0 {
		v := float64(distinctInvoices(p.Returns)) / float64(total) * 100
		rates.ByOrdersPct = &v
	}

	if total := distinctCustomers(classified); total > 0 {
		v := float64(distinctCustomers(p.Returns)) / float64(total) * 100
		rates.ByCustomersPct = &v
	}
	return rates
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
