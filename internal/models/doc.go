// package models defines the data model for the playlist check service
//
// CheckRecord and HitRecord map one-to-one onto the upc_checks and
// playlist_hits tables owned by the repositories package. LookupResult is the
// per-UPC outcome returned to transports (bot, web API, CLI).
package models
