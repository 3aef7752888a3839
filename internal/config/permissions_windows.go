// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

//go:build windows

package config

// WarnInsecurePermissions is a no-op on Windows, where POSIX permission
// bits do not reflect effective access.
func WarnInsecurePermissions(path string) {}
