// Package services implements the application layer between the HTTP
// handlers and the analytics engine.
//
// AnalyticsService owns the active dataset. Loading a file fingerprints it,
// cleans it through the analytics normalizer and swaps it in atomically;
// readers always see either the previous or the new dataset. Analyses are
// memoized in a ResultCache keyed by the dataset fingerprint and the
// effective query parameters, and concurrent identical requests share one
// computation through singleflight.
//
// Analyze absorbs statistical degeneracies (an empty selection, a zero
// revenue denominator, too few customers for RFM) into Warnings so the
// dashboard can render empty states. Pareto and TopProductsByCountry return
// those conditions as errors instead.
//
// HealthService reports liveness, readiness and process statistics.
//
// Usage:
//
//	svc := services.NewAnalyticsService(cfg, logger, services.WithPublisher(hub))
//	defer svc.Close()
//
//	if _, err := svc.LoadDataset(ctx, path, services.LoadOptions{}); err != nil {
//	    return err
//	}
//	run, err := svc.Analyze(ctx, services.Query{Granularity: domain.GranularityQuarter})
package services
