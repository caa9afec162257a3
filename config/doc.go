// Package config loads foldctl's configuration.
//
// A configuration file is YAML. Before decoding, ${VAR} references are
// expanded from the environment and a missing variable is an error; $$ emits
// a literal dollar sign. After decoding, FOLDOPS_* environment variables
// override individual settings:
//
//	FOLDOPS_SERVICE_NAME          observe.service_name
//	FOLDOPS_LOG_LEVEL             observe.logging.level
//	FOLDOPS_TRACING_EXPORTER      observe.tracing.exporter ("none" disables)
//	FOLDOPS_METRICS_EXPORTER      observe.metrics.exporter ("none" disables)
//	FOLDOPS_TEMPERATURE           defaults.temperature
//	FOLDOPS_BINDING_SITE_VERSION  defaults.binding_site_version
//	FOLDOPS_CACHE_<FIELD>         cache.<field>, e.g. FOLDOPS_CACHE_STORE
//	FOLDOPS_RESILIENCE_<FIELD>    resilience.<field>, e.g. FOLDOPS_RESILIENCE_TIMEOUT
//	FOLDOPS_HEALTH_<FIELD>        health.<field>
//
// The result is validated as a whole before it is returned.
package config
