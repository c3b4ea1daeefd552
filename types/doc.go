// Package types provides core types used across the chatflow engine.
// This package has ZERO dependencies on other chatflow packages to avoid
// circular imports. All other packages should import types from here.
package types
