// Package modules contains the application features.
//
// Each subdirectory is a module implementing `module.Module`. The list of
// active modules lives in `internal/app` and the server registers and boots
// them at startup.
package modules
