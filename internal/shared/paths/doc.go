// Package paths describes the on-disk layout of a mobile project: where each
// platform's build output lives and how source maps are named next to the
// bundles they describe.
package paths
