// Package http implements the REST surface of the analytics service.
//
// Handlers stay thin: they bind and validate query parameters or JSON
// bodies, call the service layer and render the result with go-chi/render.
// Every failure goes through the shared ErrorHandler, which answers with
// RFC 7807 problem details.
//
// Routes:
//
//	GET  /api/analytics                      full analysis
//	GET  /api/analytics/{view}               kpis, countries, cancellations, months,
//	                                         trend, seasonality, rfm, report
//	GET  /api/analytics/countries/products   top products per country
//	GET  /api/analytics/pareto               product revenue concentration
//	GET  /api/analytics/export               xlsx, csv or json report download
//	GET  /api/dataset                        active dataset summary
//	GET  /api/dataset/files                  loadable files in the data directory
//	GET  /api/dataset/exports[/{name}]       list or download exported files
//	POST /api/dataset/load                   activate a file from the data directory
//	POST /api/dataset/export                 write the cleaned dataset
//	POST /api/logs                           dashboard log forwarding
//
// Analysis responses carry X-Cache (HIT or MISS) and X-Run-ID headers.
package http
