// Package filter provides the filter type registry and the host kernels
// of the built-in filters.
//
// Filters are created by type name on a committed device whose engine can
// run host kernels (core.KernelEngine). The only built-in type is "copy",
// which converts between image formats.
package filter
