// Package tmpdump reads the float32 pipeline dumps a patched darktable writes
// as <stage>_in.tmp and <stage>_out.tmp and converts them to TIFF.
//
// A dump is five little-endian int32 header words (width, height, frames,
// channels, sample type) followed by planar float32 samples, one plane per
// channel. Conversion keeps the first frame and at most three channels.
package tmpdump
