package analytics

import (
	"retailpulse/pkg/contracts/domain"
)

// Classify returns the class of tx. The second result is false for a
// zero-quantity transaction without a cancellation marker, which belongs to
// no class and is excluded from every revenue calculation.
func Classify(tx domain.Transaction) (domain.TransactionClass, bool) {
	switch {
	case tx.IsCancellation:
		return domain.ClassCancellation, true
	case tx.Quantity > 0:
		return domain.ClassSale, true
	case tx.Quantity < 0:
		return domain.ClassReturn, true
	default:
		return "", false
	}
}

// Partition holds transactions split by class, each in input order
type Partition struct {
	Sales         []domain.Transaction
	Returns       []domain.Transaction
	Cancellations []domain.Transaction
	Unclassified  []domain.Transaction
}

// PartitionTransactions splits txs by class in a single pass
func PartitionTransactions(txs []domain.Transaction) Partition {
	var p Partition
	for _, tx := range txs {
		class, ok := Classify(tx)
		if !ok {
			p.Unclassified = append(p.Unclassified, tx)
			continue
		}
		switch class {
		case domain.ClassSale:
			p.Sales = append(p.Sales, tx)
		case domain.ClassReturn:
			p.Returns = append(p.Returns, tx)
		case domain.ClassCancellation:
			p.Cancellations = append(p.Cancellations, tx)
		}
	}
	return p
}

// Of returns the transactions of a single class
func (p Partition) Of(class domain.TransactionClass) []domain.Transaction {
	switch class {
	case domain.ClassSale:
		return p.Sales
	case domain.ClassReturn:
		return p.Returns
	case domain.ClassCancellation:
		return p.Cancellations
	}
	return nil
}

// Classified returns every classified transaction: sales, then returns, then cancellations
func (p Partition) Classified() []domain.Transaction {
	all := make([]domain.Transaction, 0, len(p.Sales)+len(p.Returns)+len(p.Cancellations))
	all = append(all, p.Sales...)
	all = append(all, p.Returns...)
	return append(all, p.Cancellations...)
}

// Counts summarizes the partition sizes
func (p Partition) Counts() domain.PartitionCounts {
	return domain.PartitionCounts{
		Sales:         len(p.Sales),
		Returns:       len(p.Returns),
		Cancellations: len(p.Cancellations),
		Unclassified:  len(p.Unclassified),
	}
}
