// Package sidecar writes and reads darktable 3.8 XMP history documents.
//
// Build merges resolved pipeline entries with the stages rawsweep never
// touches (demosaic, colour profiles, gamma, flip) and Render emits the XMP
// darktable-cli consumes. Parameter blobs are written as lowercase hex or in
// darktable's "gzNN" base64+zlib form.
package sidecar
