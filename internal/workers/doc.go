// Package workers calculates worker pool sizes for the extraction backend
// based on available CPUs and the EXTRACTION_WORKERS override.
package workers
