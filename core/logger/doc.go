// Package logger records pipeline lifecycle events as newline delimited JSON so
// a run can be audited after the fact.
package logger
