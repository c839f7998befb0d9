/*
Package log provides structured logging for Sentinel using zerolog.

A single global logger is initialized via log.Init() with a level and an
output format (JSON for machines, console for humans). Components derive
child loggers with WithComponent; the domain helpers WithIncident and
WithTarget attach the fields that matter when tracing one remediation
through the pipeline.
*/
package log
