// Package load provides the metadata sources of the generator: Doctrine
// YAML mapping files, Symfony validation files and live database schemas.
//
// Provider and Database both implement gen.MetadataProvider. Mapping files
// are parsed concurrently and can be cached on disk, keyed by the
// fingerprint of the files.
package load
