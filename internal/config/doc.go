// Package config loads the application configuration.
//
// Values are resolved in three layers, later layers winning:
//
//  1. Default()
//  2. A YAML file: $RETAIL_CONFIG, else config.yaml or configs/config.yaml
//  3. RETAIL_* environment variables
//
// Environment variables follow the struct nesting, for example:
//
//	RETAIL_SERVER_PORT=9090
//	RETAIL_DATA_SOURCE_PATH=data/online_retail.xlsx
//	RETAIL_ANALYSIS_DEFAULT_GRANULARITY=quarter
//	RETAIL_CACHE_TTL=5m
//
// The merged result is checked with go-playground/validator struct tags;
// Load fails with every violated rule listed.
package config
