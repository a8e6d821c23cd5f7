// Package errors provides the classified error primitives used across nbtoc.
//
// A ClassifiedError carries a category (config, document, render, ...), a
// severity and a retry strategy next to the usual message and cause. Errors
// are built with a fluent builder:
//
//	err := errors.NewError(errors.CategoryDocument, "container not found").
//		WithContext("container", id).
//		Build()
//
// CLI and HTTP adapters translate classified errors into exit codes and
// status codes respectively.
package errors
