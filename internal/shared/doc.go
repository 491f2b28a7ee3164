// Package shared holds code used across the retailpulse packages that does not
// belong to a single domain layer.
//
// The testutil subpackage provides the retail transaction fixtures written to
// temporary directories for loader, service and handler tests, and helpers for
// capturing and asserting slog output.
//
//	func TestLoad(t *testing.T) {
//	    path := testutil.WriteRetailCSV(t, t.TempDir(), "retail.csv")
//	    ...
//	}
package shared
