package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// RetailHeader is the column layout of the public online retail dataset
const RetailHeader = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country"

// RetailRows is a small batch covering five customers in three countries,
// one cancellation and one row for each cleaning rejection: a duplicate,
// a missing customer and a zero price.
var RetailRows = []string{
	"536365,85123A,WHITE HANGING HEART,6,2011-01-03 09:30:00,2.55,17850,United Kingdom",
	"536365,71053,WHITE METAL LANTERN,6,2011-01-03 09:30:00,3.39,17850,United Kingdom",
	"536366,22633,HAND WARMER,2,2011-01-10 10:00:00,1.85,17850,United Kingdom",
	"536367,84879,BIRD ORNAMENT,4,2011-02-07 11:00:00,1.69,13047,United Kingdom",
	"536368,22960,JAM MAKING SET,3,2011-02-14 12:00:00,4.25,12583,France",
	"536369,21756,BATH BUILDING BLOCK,1,2011-03-01 13:00:00,5.95,12583,France",
	"536370,22728,ALARM CLOCK,2,2011-03-15 14:00:00,3.75,12662,Germany",
	"536371,22727,ALARM CLOCK RED,5,2011-04-04 15:00:00,3.75,12748,Germany",
	"C536379,D,DISCOUNT,-1,2011-04-05 09:00:00,27.50,14527,United Kingdom",
	"536365,85123A,WHITE HANGING HEART,6,2011-01-03 09:30:00,2.55,17850,United Kingdom",
	"536372,22086,PAPER CHAIN KIT,4,2011-04-06 10:00:00,2.55,,United Kingdom",
	"536373,22086,PAPER CHAIN KIT,4,2011-04-06 10:00:00,0,12748,Germany",
}

// Expected figures of RetailRows when the outlier filter is skipped
const (
	RetailRawRows      = 12
	RetailTransactions = 9
	RetailRejected     = 3
	RetailSalesRevenue = "91.05"
	RetailSaleOrders   = 7
	RetailCustomers    = 5
)

// RetailCSV renders RetailRows with their header
func RetailCSV() string {
	return RetailHeader + "\n" + strings.Join(RetailRows, "\n") + "\n"
}

// WriteRetailCSV writes the fixture as name under dir and returns its path
func WriteRetailCSV(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(RetailCSV()), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}
