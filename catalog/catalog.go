// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package catalog defines the opaque catalog context forwarded by the
// MPTQ to both site pools on UpdateCatalog/UpdateSettings. The MPTQ never
// inspects its contents; it is a pass-through to the planner/executor's
// own catalog representation, named only by the interface this module
// needs.
package catalog

// Context carries whatever the planner/executor needs in order to apply a
// catalog diff or settings change to a running site. Its fields are
// intentionally opaque strings/maps here: the real catalog representation
// lives outside this module's scope.
type Context struct {
	Version  int64
	Settings map[string]string
}
