// Package dng extracts the raw-development metadata darktable's rawprepare
// and temperature stages need from a DNG file.
//
// Only the TIFF structure is walked: IFD0 for camera identification and the
// as-shot white balance, and the full-resolution raw sub-IFD for black and
// white levels and the default crop. Pixel data is never decoded.
package dng
