// Package startup handles environment-based configuration, directory
// validation, build information and startup logging for the media proxy
// service.
package startup
