// Package config loads, normalizes, and validates nzbmonkey configuration.
//
// Files are TOML. The loader applies defaults, decodes the file, expands
// paths, reads credentials from NZBMONKEY_NNTP_USER and
// NZBMONKEY_NNTP_PASSWORD when the file leaves them empty, and validates
// every section. Validation failures match services.ErrConfiguration.
package config
