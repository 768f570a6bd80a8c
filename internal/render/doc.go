// Package render turns single-molecule localizations into a super-resolution
// intensity image.
//
// Responsibilities: viewport-to-grid mapping, the image accumulator, and the
// three rendering strategies (histogram, convolution blur, adaptive splat).
// Key types: Localizations, FrameInfo, Viewport, Image, Result.
//
// Grid axes follow the image-matrix convention: rows are indexed by the
// remapped y coordinate and columns by the remapped x coordinate. A viewport
// is written as [(y_min, x_min), (y_max, x_max)].
//
// Dependency rule: this package performs no I/O. Persistence lives in
// internal/locstore and image encoding in internal/export.
package render
