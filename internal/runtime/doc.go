// Package runtime serves validated option values to applications.
//
// A Store loads per-namespace schemas and values documents from one
// directory tree, validates everything before serving a single read, and
// then keeps the values fresh by polling the backing documents. Published
// snapshots swap atomically: readers never block and never observe a
// half-applied reload, at worst a value one polling interval old. A reload
// that fails validation leaves the previous snapshot live.
package runtime
