// Package logging provides leveled logging configured through the DEBUG and
// LOG_LEVEL environment variables.
package logging
